package e2e

import (
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/alert"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/app"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/capture"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/detector"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/server"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/store"
)

// motionFrames returns a still baseline frame followed by frames with a large
// painted region, enough to trip the motion gate on the second read.
func motionFrames(t *testing.T, changed int) []*gocv.Mat {
	t.Helper()

	frames := make([]*gocv.Mat, 0, changed+1)

	baseline := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	frames = append(frames, &baseline)

	for i := 0; i < changed; i++ {
		frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		gocv.Rectangle(&frame, image.Rect(0, 0, 320, 480), color.RGBA{R: 255, G: 255, B: 255}, -1)
		frames = append(frames, &frame)
	}

	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})

	return frames
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data.db")

	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	application := app.New(app.Config{
		Store:         s,
		PluginDir:     filepath.Join(tmpDir, "plugins"),
		SnapshotDir:   filepath.Join(tmpDir, "snapshots"),
		MotionThresh:  1.0,
		IdleFPS:       10,
		ActiveFPS:     30,
		IdleTimeoutMs: 500,
	})
	defer application.Stop()

	application.SetCamera(capture.NewMockCamera(motionFrames(t, 2), true))

	mockDetector := detector.NewMockDetector()
	mockDetector.SetDetections([]detector.Detection{detector.FireDetection()})
	application.SetDetector(mockDetector)

	srv := server.New(server.Config{
		Store:          s,
		OnRulesChanged: func() { application.LoadRules() },
	})
	application.Subscribe(srv.Alerts().Publish)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	t.Run("CreateRule", func(t *testing.T) {
		body := `{"name": "fire watch", "label": "fire", "min_confidence": 0.5, "min_frames": 1, "cooldown_sec": 60}`
		resp, err := client.Post(ts.URL+"/api/rules", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("create rule error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
	})

	fired := make(chan alert.Alert, 1)
	application.Subscribe(func(al alert.Alert) {
		select {
		case fired <- al:
		default:
		}
	})

	t.Run("PipelineFiresAlert", func(t *testing.T) {
		if err := application.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		select {
		case al := <-fired:
			if al.Label != "fire" {
				t.Errorf("alert label = %s, want fire", al.Label)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("no alert fired within 5s")
		}
	})

	t.Run("EventPersisted", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/events")
		if err != nil {
			t.Fatalf("list events error = %v", err)
		}
		defer resp.Body.Close()

		var listed struct {
			Events []struct {
				Label      string  `json:"label"`
				Confidence float64 `json:"confidence"`
				Snapshot   bool    `json:"snapshot"`
			} `json:"events"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
			t.Fatalf("decode events error = %v", err)
		}

		if len(listed.Events) == 0 {
			t.Fatal("expected at least one persisted event")
		}
		if listed.Events[0].Label != "fire" {
			t.Errorf("event label = %s, want fire", listed.Events[0].Label)
		}
		if !listed.Events[0].Snapshot {
			t.Error("expected event to carry a snapshot")
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, _ := client.Get(ts.URL + "/api/health")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after pipeline operations")
		}
		resp.Body.Close()
	})
}

func TestE2E_AlertPushedToWebSocket(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "data.db"))
	defer s.Close()

	application := app.New(app.Config{
		Store:         s,
		MotionThresh:  1.0,
		IdleFPS:       10,
		ActiveFPS:     30,
		IdleTimeoutMs: 500,
	})
	defer application.Stop()

	application.SetCamera(capture.NewMockCamera(motionFrames(t, 2), true))

	mockDetector := detector.NewMockDetector()
	mockDetector.SetDetections([]detector.Detection{detector.FireDetection()})
	application.SetDetector(mockDetector)

	if err := application.LoadRules(); err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	application.Matcher().SetRules([]*alert.Rule{{
		ID:            "e2e-fire",
		Name:          "fire watch",
		Label:         "fire",
		MinConfidence: 0.5,
		MinFrames:     1,
		Cooldown:      time.Minute,
	}})

	srv := server.New(server.Config{Store: s})
	application.Subscribe(srv.Alerts().Publish)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/alerts"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for srv.Alerts().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := application.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read alert over websocket: %v", err)
	}

	var received struct {
		Alert struct {
			RuleID string `json:"rule_id"`
			Label  string `json:"label"`
		} `json:"alert"`
	}
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("unmarshal alert error = %v", err)
	}

	if received.Alert.Label != "fire" {
		t.Errorf("alert label = %s, want fire", received.Alert.Label)
	}
	if received.Alert.RuleID != "e2e-fire" {
		t.Errorf("alert rule_id = %s, want e2e-fire", received.Alert.RuleID)
	}
}

func TestE2E_NotificationBinding(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, _ := store.New(filepath.Join(tmpDir, "data.db"))
	defer s.Close()

	srv := server.New(server.Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	resp, err := client.Post(
		ts.URL+"/api/rules",
		"application/json",
		strings.NewReader(`{"name": "smoke watch", "label": "smoke"}`),
	)
	if err != nil {
		t.Fatalf("create rule error = %v", err)
	}

	var ruleResp struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&ruleResp)
	resp.Body.Close()

	notifReq := map[string]interface{}{
		"rule_id":     ruleResp.ID,
		"plugin_name": "webhook",
		"action_name": "post",
		"config":      map[string]string{"url": "http://localhost:9000/hook"},
		"enabled":     true,
	}
	notifBody, _ := json.Marshal(notifReq)

	resp, err = client.Post(
		ts.URL+"/api/notifications",
		"application/json",
		strings.NewReader(string(notifBody)),
	)
	if err != nil {
		t.Fatalf("create notification error = %v", err)
	}

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("create notification status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	resp, err = client.Get(ts.URL + "/api/notifications?rule_id=" + ruleResp.ID)
	if err != nil {
		t.Fatalf("list notifications error = %v", err)
	}

	var listResp struct {
		Notifications []struct {
			ID         string `json:"id"`
			RuleID     string `json:"rule_id"`
			PluginName string `json:"plugin_name"`
			ActionName string `json:"action_name"`
			Enabled    bool   `json:"enabled"`
		} `json:"notifications"`
	}
	json.NewDecoder(resp.Body).Decode(&listResp)
	resp.Body.Close()

	if len(listResp.Notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(listResp.Notifications))
	}

	if listResp.Notifications[0].RuleID != ruleResp.ID {
		t.Errorf("notification rule_id mismatch: got %s, want %s", listResp.Notifications[0].RuleID, ruleResp.ID)
	}
	if listResp.Notifications[0].PluginName != "webhook" {
		t.Errorf("plugin_name = %s, want webhook", listResp.Notifications[0].PluginName)
	}
}
