// Package server provides the HTTP server for the detection dashboard and API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/capture"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/detector"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/server/api"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Camera    capture.Camera
	Detector  detector.Detector
	Metrics   http.Handler

	// OnRulesChanged is invoked after rules change over the API so the
	// running pipeline can reload its matcher.
	OnRulesChanged func()
}

// Server represents the HTTP server for the detection application.
type Server struct {
	config Config
	mux    *http.ServeMux
	alerts *AlertsHandler
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		alerts: NewAlertsHandler(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		ruleHandler := api.NewRuleHandler(s.config.Store)
		ruleHandler.OnChange = s.config.OnRulesChanged
		s.mux.Handle("/api/rules", ruleHandler)
		s.mux.Handle("/api/rules/", ruleHandler)

		eventHandler := api.NewEventHandler(s.config.Store)
		s.mux.Handle("/api/events", eventHandler)
		s.mux.Handle("/api/events/", eventHandler)

		notificationHandler := api.NewNotificationHandler(s.config.Store)
		s.mux.Handle("/api/notifications", notificationHandler)
		s.mux.Handle("/api/notifications/", notificationHandler)
	}

	// Live annotated MJPEG stream
	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera, s.config.Detector))
	}

	// WebSocket alert feed
	s.mux.Handle("/api/alerts", s.alerts)

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics)
	}

	// Serve the dashboard if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// Alerts returns the WebSocket alerts handler so the pipeline can publish
// fired alerts to connected clients.
func (s *Server) Alerts() *AlertsHandler {
	return s.alerts
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
