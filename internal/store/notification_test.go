package store

import (
	"encoding/json"
	"errors"
	"testing"
)

func createTestNotification(t *testing.T, s *Store, id, ruleID string) *Notification {
	t.Helper()

	n := &Notification{
		ID:         id,
		RuleID:     ruleID,
		PluginName: "webhook",
		ActionName: "post",
		Config:     json.RawMessage(`{"url":"http://localhost:9000/alerts"}`),
		Enabled:    true,
	}
	if err := s.Notifications().Create(n); err != nil {
		t.Fatalf("failed to create notification: %v", err)
	}
	return n
}

func TestNotificationRepository_Create(t *testing.T) {
	s := newTestStore(t)

	createTestRule(t, s, "rule-1", "fire-watch", "fire")
	n := createTestNotification(t, s, "notif-1", "rule-1")

	if n.CreatedAt.IsZero() {
		t.Error("created_at should be set on create")
	}
}

func TestNotificationRepository_Create_NilConfig(t *testing.T) {
	s := newTestStore(t)

	createTestRule(t, s, "rule-1", "fire-watch", "fire")

	n := &Notification{
		ID:         "notif-1",
		RuleID:     "rule-1",
		PluginName: "desktop-notify",
		ActionName: "notify",
		Enabled:    true,
	}
	if err := s.Notifications().Create(n); err != nil {
		t.Fatalf("failed to create notification: %v", err)
	}

	got, err := s.Notifications().GetByID("notif-1")
	if err != nil {
		t.Fatalf("failed to get notification: %v", err)
	}
	if string(got.Config) != "{}" {
		t.Errorf("expected empty config object, got %q", string(got.Config))
	}
}

func TestNotificationRepository_GetByID(t *testing.T) {
	s := newTestStore(t)

	createTestRule(t, s, "rule-1", "fire-watch", "fire")
	createTestNotification(t, s, "notif-1", "rule-1")

	got, err := s.Notifications().GetByID("notif-1")
	if err != nil {
		t.Fatalf("failed to get notification: %v", err)
	}

	if got.PluginName != "webhook" {
		t.Errorf("expected plugin webhook, got %q", got.PluginName)
	}
	if got.ActionName != "post" {
		t.Errorf("expected action post, got %q", got.ActionName)
	}
	if !got.Enabled {
		t.Error("expected notification to be enabled")
	}

	var cfg map[string]string
	if err := json.Unmarshal(got.Config, &cfg); err != nil {
		t.Fatalf("config should be valid JSON: %v", err)
	}
	if cfg["url"] != "http://localhost:9000/alerts" {
		t.Errorf("unexpected config url %q", cfg["url"])
	}
}

func TestNotificationRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Notifications().GetByID("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationRepository_GetByRuleID(t *testing.T) {
	s := newTestStore(t)

	createTestRule(t, s, "rule-1", "fire-watch", "fire")
	createTestRule(t, s, "rule-2", "smoke-watch", "smoke")
	createTestNotification(t, s, "notif-1", "rule-1")
	createTestNotification(t, s, "notif-2", "rule-1")
	createTestNotification(t, s, "notif-3", "rule-2")

	notifications, err := s.Notifications().GetByRuleID("rule-1")
	if err != nil {
		t.Fatalf("failed to get notifications by rule: %v", err)
	}
	if len(notifications) != 2 {
		t.Errorf("expected 2 notifications for rule-1, got %d", len(notifications))
	}

	notifications, err = s.Notifications().GetByRuleID("rule-3")
	if err != nil {
		t.Fatalf("failed to get notifications by rule: %v", err)
	}
	if len(notifications) != 0 {
		t.Errorf("expected 0 notifications for unknown rule, got %d", len(notifications))
	}
}

func TestNotificationRepository_List(t *testing.T) {
	s := newTestStore(t)

	createTestRule(t, s, "rule-1", "fire-watch", "fire")
	createTestNotification(t, s, "notif-1", "rule-1")
	createTestNotification(t, s, "notif-2", "rule-1")

	notifications, err := s.Notifications().List()
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(notifications) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(notifications))
	}
}

func TestNotificationRepository_Update(t *testing.T) {
	s := newTestStore(t)

	createTestRule(t, s, "rule-1", "fire-watch", "fire")
	n := createTestNotification(t, s, "notif-1", "rule-1")

	n.Enabled = false
	n.Config = json.RawMessage(`{"url":"http://localhost:9001/alerts"}`)
	if err := s.Notifications().Update(n); err != nil {
		t.Fatalf("failed to update notification: %v", err)
	}

	got, err := s.Notifications().GetByID("notif-1")
	if err != nil {
		t.Fatalf("failed to get notification: %v", err)
	}
	if got.Enabled {
		t.Error("expected notification to be disabled after update")
	}
	if string(got.Config) != `{"url":"http://localhost:9001/alerts"}` {
		t.Errorf("unexpected config after update: %q", string(got.Config))
	}
}

func TestNotificationRepository_Update_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.Notifications().Update(&Notification{
		ID:         "nonexistent",
		RuleID:     "rule-1",
		PluginName: "webhook",
		ActionName: "post",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationRepository_Delete(t *testing.T) {
	s := newTestStore(t)

	createTestRule(t, s, "rule-1", "fire-watch", "fire")
	createTestNotification(t, s, "notif-1", "rule-1")

	if err := s.Notifications().Delete("notif-1"); err != nil {
		t.Fatalf("failed to delete notification: %v", err)
	}

	_, err := s.Notifications().GetByID("notif-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNotificationRepository_CascadeDeleteWithRule(t *testing.T) {
	s := newTestStore(t)

	createTestRule(t, s, "rule-1", "fire-watch", "fire")
	createTestNotification(t, s, "notif-1", "rule-1")
	createTestNotification(t, s, "notif-2", "rule-1")

	if err := s.Rules().Delete("rule-1"); err != nil {
		t.Fatalf("failed to delete rule: %v", err)
	}

	notifications, err := s.Notifications().GetByRuleID("rule-1")
	if err != nil {
		t.Fatalf("failed to get notifications: %v", err)
	}
	if len(notifications) != 0 {
		t.Errorf("expected notifications to cascade delete with rule, got %d", len(notifications))
	}
}
