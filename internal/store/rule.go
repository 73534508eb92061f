package store

import (
	"database/sql"
	"errors"
	"time"
)

// Valid rule labels, matching the trained model classes.
const (
	RuleLabelFire  = "fire"
	RuleLabelSmoke = "smoke"
	RuleLabelHuman = "human"
)

// ValidRuleLabel reports whether a label names a trained model class.
func ValidRuleLabel(label string) bool {
	switch label {
	case RuleLabelFire, RuleLabelSmoke, RuleLabelHuman:
		return true
	}
	return false
}

// Rule represents an alert rule definition stored in the database.
type Rule struct {
	ID            string
	Name          string
	Label         string
	MinConfidence float64
	MinFrames     int
	CooldownSec   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RuleRepository provides CRUD operations for alert rules.
type RuleRepository struct {
	db *sql.DB
}

// Rules returns the rule repository for this store.
func (s *Store) Rules() *RuleRepository {
	return &RuleRepository{db: s.db}
}

// Create inserts a new rule into the database.
func (r *RuleRepository) Create(rule *Rule) error {
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO alert_rules (id, name, label, min_confidence, min_frames, cooldown_sec, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, rule.Label, rule.MinConfidence, rule.MinFrames, rule.CooldownSec, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a rule by its ID.
func (r *RuleRepository) GetByID(id string) (*Rule, error) {
	rule := &Rule{}

	err := r.db.QueryRow(
		`SELECT id, name, label, min_confidence, min_frames, cooldown_sec, created_at, updated_at
		 FROM alert_rules WHERE id = ?`,
		id,
	).Scan(&rule.ID, &rule.Name, &rule.Label, &rule.MinConfidence, &rule.MinFrames, &rule.CooldownSec, &rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return rule, nil
}

// GetByName retrieves a rule by its name.
func (r *RuleRepository) GetByName(name string) (*Rule, error) {
	rule := &Rule{}

	err := r.db.QueryRow(
		`SELECT id, name, label, min_confidence, min_frames, cooldown_sec, created_at, updated_at
		 FROM alert_rules WHERE name = ?`,
		name,
	).Scan(&rule.ID, &rule.Name, &rule.Label, &rule.MinConfidence, &rule.MinFrames, &rule.CooldownSec, &rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return rule, nil
}

// List retrieves all rules from the database.
func (r *RuleRepository) List() ([]*Rule, error) {
	rows, err := r.db.Query(
		`SELECT id, name, label, min_confidence, min_frames, cooldown_sec, created_at, updated_at
		 FROM alert_rules ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		rule := &Rule{}

		err := rows.Scan(&rule.ID, &rule.Name, &rule.Label, &rule.MinConfidence, &rule.MinFrames, &rule.CooldownSec, &rule.CreatedAt, &rule.UpdatedAt)
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rules, nil
}

// Update updates an existing rule in the database.
func (r *RuleRepository) Update(rule *Rule) error {
	rule.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE alert_rules SET name = ?, label = ?, min_confidence = ?, min_frames = ?, cooldown_sec = ?, updated_at = ?
		 WHERE id = ?`,
		rule.Name, rule.Label, rule.MinConfidence, rule.MinFrames, rule.CooldownSec, rule.UpdatedAt, rule.ID,
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

// Delete removes a rule from the database by its ID.
func (r *RuleRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM alert_rules WHERE id = ?`, id)
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
