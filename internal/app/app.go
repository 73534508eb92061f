// Package app wires the camera, detector, alert matching, and notification
// plugins into the main detection pipeline.
package app

import (
	"log"
	"sync"
	"time"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/alert"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/annotate"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/capture"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/detector"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/metrics"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/plugin"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/store"
)

// Pipeline timing defaults.
const (
	// DefaultIdleFPS is the frame rate when the scene is still.
	DefaultIdleFPS = 5
	// DefaultActiveFPS is the frame rate while motion is present.
	DefaultActiveFPS = 15
	// DefaultIdleTimeoutMs is how long after the last motion the pipeline
	// drops back to idle mode.
	DefaultIdleTimeoutMs = 2000
	// DefaultPluginTimeoutMs bounds a single notification plugin run.
	DefaultPluginTimeoutMs = 5000
)

// Config holds configuration options for the application.
type Config struct {
	Store         *store.Store
	PluginDir     string
	SnapshotDir   string
	Source        string
	MotionThresh  float64
	IdleFPS       int
	ActiveFPS     int
	IdleTimeoutMs int
	PluginTimeout int
	RetentionDays int
}

// App orchestrates the camera, motion gating, model inference, alert rule
// matching, persistence, and plugin dispatch.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	detector   detector.Detector
	matcher    *alert.Matcher
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor
	metrics    *metrics.Metrics
	snapshots  *annotate.SnapshotWriter

	enabled bool
	mu      sync.RWMutex
	stopCh  chan struct{}

	listenersMu sync.RWMutex
	listeners   []func(alert.Alert)
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.MotionThresh <= 0 {
		config.MotionThresh = 1.0 // Default threshold: 1% pixel change
	}
	if config.IdleFPS <= 0 {
		config.IdleFPS = DefaultIdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = DefaultActiveFPS
	}
	if config.IdleTimeoutMs <= 0 {
		config.IdleTimeoutMs = DefaultIdleTimeoutMs
	}
	if config.PluginTimeout <= 0 {
		config.PluginTimeout = DefaultPluginTimeoutMs
	}

	a := &App{
		config:     config,
		camera:     capture.NewCamera(config.Source),
		motion:     capture.NewMotionDetector(config.MotionThresh),
		matcher:    alert.NewMatcher(),
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(config.PluginTimeout),
		metrics:    metrics.New(),
		enabled:    true,
	}
	a.metrics.DetectionEnabled.Store(1)

	// The caller injects the real detector through SetDetector; until then
	// the pipeline runs against an inert mock that never detects anything.
	a.detector = detector.NewMockDetector()

	if config.SnapshotDir != "" {
		w, err := annotate.NewSnapshotWriter(config.SnapshotDir)
		if err != nil {
			log.Printf("Snapshot directory unavailable: %v", err)
		} else {
			a.snapshots = w
		}
	}

	return a
}

// SetEnabled enables or disables detection.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled

	if enabled {
		a.metrics.DetectionEnabled.Store(1)
	} else {
		a.metrics.DetectionEnabled.Store(0)
		a.matcher.Reset()
	}
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the frame source. Must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Subscribe registers a listener that is called for every fired alert.
func (a *App) Subscribe(fn func(alert.Alert)) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// LoadRules loads alert rules from the database into the matcher. An empty
// database is seeded with the default fire, smoke, and human rules.
func (a *App) LoadRules() error {
	if a.config.Store == nil {
		a.matcher.SetRules(alert.DefaultRules())
		return nil
	}

	stored, err := a.config.Store.Rules().List()
	if err != nil {
		return err
	}

	if len(stored) == 0 {
		return a.seedDefaultRules()
	}

	rules := make([]*alert.Rule, len(stored))
	for i, r := range stored {
		rules[i] = storeRuleToAlert(r)
	}
	a.matcher.SetRules(rules)

	log.Printf("Loaded %d alert rules from database", len(rules))
	return nil
}

// seedDefaultRules persists the built-in rules and loads them into the matcher.
func (a *App) seedDefaultRules() error {
	defaults := alert.DefaultRules()
	for i := range defaults {
		r := &store.Rule{
			ID:            defaults[i].ID,
			Name:          defaults[i].Name,
			Label:         defaults[i].Label,
			MinConfidence: defaults[i].MinConfidence,
			MinFrames:     defaults[i].MinFrames,
			CooldownSec:   int(defaults[i].Cooldown / time.Second),
		}
		if err := a.config.Store.Rules().Create(r); err != nil {
			return err
		}
	}

	a.matcher.SetRules(defaults)
	log.Printf("Seeded %d default alert rules", len(defaults))
	return nil
}

// storeRuleToAlert converts a persisted rule to a matcher rule.
func storeRuleToAlert(r *store.Rule) *alert.Rule {
	return &alert.Rule{
		ID:            r.ID,
		Name:          r.Name,
		Label:         r.Label,
		MinConfidence: r.MinConfidence,
		MinFrames:     r.MinFrames,
		Cooldown:      time.Duration(r.CooldownSec) * time.Second,
	}
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.config.IdleFPS)

	a.stopCh = make(chan struct{})
	go a.runPipeline()

	if a.config.Store != nil && a.config.RetentionDays > 0 {
		go a.runRetention(a.stopCh)
	}

	log.Println("Detection pipeline started")
	return nil
}

// runRetention prunes events older than the retention window, once at start
// and then every hour. The stop channel is passed in because Stop nils the
// field it came from.
func (a *App) runRetention(stopCh <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		cutoff := time.Now().AddDate(0, 0, -a.config.RetentionDays)
		pruned, err := a.config.Store.Events().Prune(cutoff)
		if err != nil {
			log.Printf("Event pruning failed: %v", err)
		} else if pruned > 0 {
			log.Printf("Pruned %d events older than %d days", pruned, a.config.RetentionDays)
		}

		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the detection pipeline and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	a.motion.Close()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// MotionDetector returns the motion detector instance.
func (a *App) MotionDetector() *capture.MotionDetector {
	return a.motion
}

// Matcher returns the alert rule matcher.
func (a *App) Matcher() *alert.Matcher {
	return a.matcher
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Metrics returns the application metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Store returns the backing store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Detector returns the active detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}
