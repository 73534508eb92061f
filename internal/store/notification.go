package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Notification represents a rule-to-plugin binding stored in the database.
// When the bound rule fires, the plugin action runs with the stored config.
type Notification struct {
	ID         string
	RuleID     string
	PluginName string
	ActionName string
	Config     json.RawMessage
	Enabled    bool
	CreatedAt  time.Time
}

// NotificationRepository provides CRUD operations for notifications.
type NotificationRepository struct {
	db *sql.DB
}

// Notifications returns the notification repository for this store.
func (s *Store) Notifications() *NotificationRepository {
	return &NotificationRepository{db: s.db}
}

// Create inserts a new notification into the database.
func (r *NotificationRepository) Create(n *Notification) error {
	n.CreatedAt = time.Now()

	config := n.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	_, err := r.db.Exec(
		`INSERT INTO notifications (id, rule_id, plugin_name, action_name, config, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RuleID, n.PluginName, n.ActionName, string(config), n.Enabled, n.CreatedAt,
	)
	return err
}

// GetByID retrieves a notification by its ID.
func (r *NotificationRepository) GetByID(id string) (*Notification, error) {
	n := &Notification{}
	var config string
	var enabled int

	err := r.db.QueryRow(
		`SELECT id, rule_id, plugin_name, action_name, config, enabled, created_at
		 FROM notifications WHERE id = ?`,
		id,
	).Scan(&n.ID, &n.RuleID, &n.PluginName, &n.ActionName, &config, &enabled, &n.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	n.Config = json.RawMessage(config)
	n.Enabled = enabled != 0
	return n, nil
}

// GetByRuleID retrieves all notifications bound to a rule.
func (r *NotificationRepository) GetByRuleID(ruleID string) ([]*Notification, error) {
	rows, err := r.db.Query(
		`SELECT id, rule_id, plugin_name, action_name, config, enabled, created_at
		 FROM notifications WHERE rule_id = ? ORDER BY created_at`,
		ruleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// List retrieves all notifications from the database.
func (r *NotificationRepository) List() ([]*Notification, error) {
	rows, err := r.db.Query(
		`SELECT id, rule_id, plugin_name, action_name, config, enabled, created_at
		 FROM notifications ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]*Notification, error) {
	var notifications []*Notification
	for rows.Next() {
		n := &Notification{}
		var config string
		var enabled int

		err := rows.Scan(&n.ID, &n.RuleID, &n.PluginName, &n.ActionName, &config, &enabled, &n.CreatedAt)
		if err != nil {
			return nil, err
		}

		n.Config = json.RawMessage(config)
		n.Enabled = enabled != 0
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// Update updates an existing notification in the database.
func (r *NotificationRepository) Update(n *Notification) error {
	config := n.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	enabled := 0
	if n.Enabled {
		enabled = 1
	}

	result, err := r.db.Exec(
		`UPDATE notifications SET rule_id = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		n.RuleID, n.PluginName, n.ActionName, string(config), enabled, n.ID,
	)
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

// Delete removes a notification from the database by its ID.
func (r *NotificationRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE id = ?`, id)
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
