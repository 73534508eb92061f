package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Event represents an alert raised by the detection pipeline.
type Event struct {
	ID           string
	RuleID       string
	Label        string
	Confidence   float64
	X            int
	Y            int
	Width        int
	Height       int
	Source       string
	SnapshotPath string
	CreatedAt    time.Time
}

// EventFilter narrows List queries. Zero values mean "no constraint".
type EventFilter struct {
	Label string
	Since time.Time
	Limit int
}

// EventRepository provides operations for detection events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts a new event into the database.
func (r *EventRepository) Create(e *Event) error {
	e.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO events (id, rule_id, label, confidence, x, y, width, height, source, snapshot_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RuleID, e.Label, e.Confidence, e.X, e.Y, e.Width, e.Height, e.Source, e.SnapshotPath, e.CreatedAt,
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*Event, error) {
	e := &Event{}

	err := r.db.QueryRow(
		`SELECT id, rule_id, label, confidence, x, y, width, height, source, snapshot_path, created_at
		 FROM events WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.RuleID, &e.Label, &e.Confidence, &e.X, &e.Y, &e.Width, &e.Height, &e.Source, &e.SnapshotPath, &e.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return e, nil
}

// List retrieves events matching the filter, newest first.
func (r *EventRepository) List(filter EventFilter) ([]*Event, error) {
	query := `SELECT id, rule_id, label, confidence, x, y, width, height, source, snapshot_path, created_at
		 FROM events`

	var conditions []string
	var args []interface{}

	if filter.Label != "" {
		conditions = append(conditions, "label = ?")
		args = append(args, filter.Label)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		err := rows.Scan(&e.ID, &e.RuleID, &e.Label, &e.Confidence, &e.X, &e.Y, &e.Width, &e.Height, &e.Source, &e.SnapshotPath, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Delete removes an event from the database by its ID.
func (r *EventRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Prune removes events created before the cutoff and returns how many were
// deleted. Used for retention housekeeping.
func (r *EventRepository) Prune(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
