package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/alert"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/detector"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/store"
)

func TestAPI_RuleWorkflow(t *testing.T) {
	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "test.db"))
	defer s.Close()

	reloads := 0
	srv := New(Config{Store: s, OnRulesChanged: func() { reloads++ }})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Create a rule
	createBody := `{"name": "garage fire watch", "label": "fire", "min_confidence": 0.6}`
	resp, err := client.Post(ts.URL+"/api/rules", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/rules error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Name != "garage fire watch" {
		t.Errorf("created name = %s, want garage fire watch", created.Name)
	}

	// 2. Bind a webhook notification to it
	notifBody := `{"rule_id": "` + created.ID + `", "plugin_name": "webhook", "action_name": "post", "config": {"url": "http://localhost:9000"}}`
	resp, err = client.Post(ts.URL+"/api/notifications", "application/json", bytes.NewBufferString(notifBody))
	if err != nil {
		t.Fatalf("POST /api/notifications error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST notification status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	// 3. List rules
	resp, _ = client.Get(ts.URL + "/api/rules")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/rules status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var listed struct {
		Rules []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"rules"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Rules) != 1 {
		t.Fatalf("len(rules) = %d, want 1", len(listed.Rules))
	}

	// 4. Delete the rule; its notification cascades away with it
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/rules/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	resp, _ = client.Get(ts.URL + "/api/rules/" + created.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()

	notifications, err := s.Notifications().GetByRuleID(created.ID)
	if err != nil {
		t.Fatalf("failed to list notifications: %v", err)
	}
	if len(notifications) != 0 {
		t.Errorf("expected notifications to cascade delete, got %d", len(notifications))
	}

	// Rule create and delete both trigger a matcher reload
	if reloads != 2 {
		t.Errorf("expected 2 rule reloads (create, delete), got %d", reloads)
	}
}

func TestAlertsHandler_PublishToWebSocket(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/alerts"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()

	// Wait until the server has registered the client
	deadline := time.Now().Add(time.Second)
	for srv.Alerts().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.Alerts().ClientCount() == 0 {
		t.Fatal("client never registered")
	}

	fired := alert.Alert{
		RuleID:     "rule-fire",
		RuleName:   "fire watch",
		Label:      "fire",
		Confidence: 0.91,
		Detection:  detector.FireDetection(),
		At:         time.Now(),
	}
	srv.Alerts().Publish(fired)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read alert message: %v", err)
	}

	var received struct {
		Alert struct {
			RuleID     string  `json:"rule_id"`
			Label      string  `json:"label"`
			Confidence float64 `json:"confidence"`
		} `json:"alert"`
		Timestamp int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("failed to unmarshal alert: %v", err)
	}

	if received.Alert.RuleID != "rule-fire" {
		t.Errorf("rule_id = %s, want rule-fire", received.Alert.RuleID)
	}
	if received.Alert.Label != "fire" {
		t.Errorf("label = %s, want fire", received.Alert.Label)
	}
	if received.Timestamp == 0 {
		t.Error("expected non-zero timestamp")
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
