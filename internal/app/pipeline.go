package app

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/alert"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/detector"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/plugin"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/store"
)

// runPipeline is the main detection loop.
//
// Pipeline logic:
// 1. Start in idle mode (idle FPS)
// 2. On motion detected, switch to active mode (active FPS)
// 3. Run model inference on the frame
// 4. Feed detections to the alert rule matcher
// 5. On a fired alert: persist the event, save an annotated snapshot,
//    dispatch notification plugins, and publish to subscribers
// 6. After the idle timeout with no motion, switch back to idle mode and
//    reset the matcher's consecutive-frame counters
func (a *App) runPipeline() {
	activeMode := false
	lastMotionTime := time.Now()
	idleTimeout := time.Duration(a.config.IdleTimeoutMs) * time.Millisecond

	frameInterval := time.Second / time.Duration(a.config.IdleFPS)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			// Skip processing if detection is disabled
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				a.metrics.CaptureErrors.Add(1)
				log.Printf("Error reading frame: %v", err)
				continue
			}
			a.metrics.FramesRead.Add(1)

			// Step 1: Motion gating
			motionDetected, _ := a.motion.Detect(frame)

			if motionDetected {
				lastMotionTime = time.Now()

				if !activeMode {
					activeMode = true
					a.metrics.MotionActive.Store(1)
					a.camera.SetFPS(a.config.ActiveFPS)
					frameInterval = time.Second / time.Duration(a.config.ActiveFPS)
					ticker.Reset(frameInterval)
					log.Println("Switched to active mode")
				}
			} else if activeMode {
				if time.Since(lastMotionTime) > idleTimeout {
					activeMode = false
					a.metrics.MotionActive.Store(0)
					a.camera.SetFPS(a.config.IdleFPS)
					frameInterval = time.Second / time.Duration(a.config.IdleFPS)
					ticker.Reset(frameInterval)
					a.matcher.Reset()
					log.Println("Switched to idle mode")
				}
			}

			// Skip inference while the scene is idle
			if !activeMode {
				a.metrics.FramesDropped.Add(1)
				frame.Close()
				continue
			}

			// Step 2: Model inference
			start := time.Now()
			detections, err := a.Detector().Detect(frame)
			a.metrics.UpdateInferenceLatency(time.Since(start))

			if err != nil {
				a.metrics.InferenceErrors.Add(1)
				log.Printf("Error running inference: %v", err)
				frame.Close()
				continue
			}
			a.metrics.FramesProcessed.Add(1)

			for _, det := range detections {
				a.metrics.RecordDetection(det.Label)
			}

			// Step 3: Alert rule matching
			alerts := a.matcher.Observe(detections)
			for _, al := range alerts {
				a.handleAlert(frame, al)
			}

			frame.Close()
		}
	}
}

// handleAlert persists the event, saves an annotated snapshot, dispatches
// notification plugins, and publishes the alert to subscribers.
func (a *App) handleAlert(frame *gocv.Mat, al alert.Alert) {
	a.metrics.AlertsFired.Add(1)
	log.Printf("Alert fired: rule %s matched %s (%.2f)", al.RuleName, al.Label, al.Confidence)

	eventID := uuid.NewString()

	snapshotPath := ""
	if a.snapshots != nil {
		path, err := a.snapshots.Save(frame, []detector.Detection{al.Detection}, eventID)
		if err != nil {
			log.Printf("Failed to save snapshot: %v", err)
		} else {
			snapshotPath = path
		}
	}

	if a.config.Store != nil {
		event := &store.Event{
			ID:           eventID,
			RuleID:       al.RuleID,
			Label:        al.Label,
			Confidence:   al.Confidence,
			X:            al.Detection.Box.X,
			Y:            al.Detection.Box.Y,
			Width:        al.Detection.Box.Width,
			Height:       al.Detection.Box.Height,
			Source:       a.config.Source,
			SnapshotPath: snapshotPath,
		}
		if err := a.config.Store.Events().Create(event); err != nil {
			log.Printf("Failed to persist event: %v", err)
		}

		a.dispatchNotifications(al)
	}

	a.publish(al)
}

// dispatchNotifications runs every enabled plugin bound to the fired rule.
// Plugins run in their own goroutine so a slow notifier never stalls the
// pipeline.
func (a *App) dispatchNotifications(al alert.Alert) {
	notifications, err := a.config.Store.Notifications().GetByRuleID(al.RuleID)
	if err != nil {
		log.Printf("Failed to load notifications for rule %s: %v", al.RuleID, err)
		return
	}

	payload, err := json.Marshal(al)
	if err != nil {
		log.Printf("Failed to marshal alert: %v", err)
		return
	}

	for _, n := range notifications {
		if !n.Enabled {
			continue
		}

		plug, err := a.pluginMgr.Get(n.PluginName)
		if err != nil {
			a.metrics.PluginErrors.Add(1)
			log.Printf("Plugin %s not found for notification %s", n.PluginName, n.ID)
			continue
		}

		req := &plugin.Request{
			Action: n.ActionName,
			Alert:  payload,
			Config: n.Config,
		}

		go func(n *store.Notification) {
			resp, err := a.pluginExec.Execute(plug, req)
			if err != nil {
				a.metrics.PluginErrors.Add(1)
				log.Printf("Notification %s failed: %v", n.ID, err)
				return
			}
			if !resp.Success {
				a.metrics.PluginErrors.Add(1)
				log.Printf("Notification %s rejected: %s", n.ID, resp.Error)
			}
		}(n)
	}
}

// publish sends the alert to all subscribed listeners.
func (a *App) publish(al alert.Alert) {
	a.listenersMu.RLock()
	listeners := make([]func(alert.Alert), len(a.listeners))
	copy(listeners, a.listeners)
	a.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(al)
	}
}
