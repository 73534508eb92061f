// Package metrics exposes detection pipeline counters over Prometheus.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics. Counters are plain atomics so the
// pipeline hot path never touches a mutex; Prometheus reads them lazily
// through GaugeFunc collectors at scrape time.
type Metrics struct {
	// Frame processing counters
	FramesRead      atomic.Uint64
	FramesProcessed atomic.Uint64
	FramesDropped   atomic.Uint64

	// Error counters
	CaptureErrors   atomic.Uint64
	InferenceErrors atomic.Uint64
	PluginErrors    atomic.Uint64

	// Latency tracking
	InferenceLatencyMs atomic.Uint64

	// Pipeline state
	MotionActive     atomic.Uint64 // 0 = idle, 1 = active
	DetectionEnabled atomic.Uint64 // 0 = paused, 1 = running

	// Alerting
	AlertsFired atomic.Uint64

	// Per-class detection counters
	detectionsMu  sync.Mutex
	detections    map[string]uint64
	detectionsVec *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors registered.
func New() *Metrics {
	m := &Metrics{
		detections: make(map[string]uint64),
		registry:   prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "aicamera_frames_read_total",
			Help: "Total frames read from the camera",
		},
		func() float64 { return float64(m.FramesRead.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "aicamera_frames_processed_total",
			Help: "Total frames run through the detector",
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "aicamera_frames_dropped_total",
			Help: "Total frames skipped while the scene was idle",
		},
		func() float64 { return float64(m.FramesDropped.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "aicamera_capture_errors_total",
			Help: "Total camera read errors",
		},
		func() float64 { return float64(m.CaptureErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "aicamera_inference_errors_total",
			Help: "Total model inference errors",
		},
		func() float64 { return float64(m.InferenceErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "aicamera_plugin_errors_total",
			Help: "Total notification plugin execution errors",
		},
		func() float64 { return float64(m.PluginErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "aicamera_inference_latency_ms",
			Help: "Latency of the most recent inference in milliseconds",
		},
		func() float64 { return float64(m.InferenceLatencyMs.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "aicamera_motion_active",
			Help: "Motion gate state (0=idle, 1=active)",
		},
		func() float64 { return float64(m.MotionActive.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "aicamera_detection_enabled",
			Help: "Detection pipeline state (0=paused, 1=running)",
		},
		func() float64 { return float64(m.DetectionEnabled.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "aicamera_alerts_fired_total",
			Help: "Total alerts fired by rule matching",
		},
		func() float64 { return float64(m.AlertsFired.Load()) },
	))

	m.detectionsVec = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aicamera_detections_total",
			Help: "Total detections by class label",
		},
		[]string{"label"},
	)
	m.registry.MustRegister(m.detectionsVec)
}

// RecordDetection counts a detection for the given class label.
func (m *Metrics) RecordDetection(label string) {
	m.detectionsMu.Lock()
	m.detections[label]++
	count := m.detections[label]
	m.detectionsMu.Unlock()

	m.detectionsVec.WithLabelValues(label).Set(float64(count))
}

// DetectionCount returns the detection counter for a class label.
func (m *Metrics) DetectionCount(label string) uint64 {
	m.detectionsMu.Lock()
	defer m.detectionsMu.Unlock()
	return m.detections[label]
}

// UpdateInferenceLatency records how long the last inference took.
func (m *Metrics) UpdateInferenceLatency(duration time.Duration) {
	m.InferenceLatencyMs.Store(uint64(duration.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
