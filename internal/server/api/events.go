package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/store"
)

// EventHandler handles HTTP requests for detection event resources.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates a new EventHandler with the given store.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/events, /api/events/{id}, /api/events/{id}/snapshot
	path := strings.TrimPrefix(r.URL.Path, "/api/events")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/snapshot"); ok {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.snapshot(w, r, id)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type eventResponse struct {
	ID         string  `json:"id"`
	RuleID     string  `json:"rule_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Source     string  `json:"source"`
	Snapshot   bool    `json:"snapshot"`
	CreatedAt  string  `json:"created_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

// toEventResponse converts a store.Event to an eventResponse.
func toEventResponse(e *store.Event) eventResponse {
	return eventResponse{
		ID:         e.ID,
		RuleID:     e.RuleID,
		Label:      e.Label,
		Confidence: e.Confidence,
		X:          e.X,
		Y:          e.Y,
		Width:      e.Width,
		Height:     e.Height,
		Source:     e.Source,
		Snapshot:   e.SnapshotPath != "",
		CreatedAt:  e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// list handles GET /api/events with optional label, since, and limit query
// parameters. Events come back newest first.
func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	filter := store.EventFilter{}

	if label := r.URL.Query().Get("label"); label != "" {
		if !store.ValidRuleLabel(label) {
			writeError(w, http.StatusBadRequest, "Label must be one of: fire, smoke, human")
			return
		}
		filter.Label = label
	}

	if since := r.URL.Query().Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		filter.Since = ts
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	events, err := h.store.Events().List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{
		Events: make([]eventResponse, 0, len(events)),
	}
	for _, e := range events {
		response.Events = append(response.Events, toEventResponse(e))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/events/{id} and returns a single event.
func (h *EventHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	event, err := h.store.Events().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(event))
}

// snapshot handles GET /api/events/{id}/snapshot and serves the annotated
// snapshot image captured when the event fired.
func (h *EventHandler) snapshot(w http.ResponseWriter, r *http.Request, id string) {
	event, err := h.store.Events().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}

	if event.SnapshotPath == "" {
		writeError(w, http.StatusNotFound, "Event has no snapshot")
		return
	}

	http.ServeFile(w, r, event.SnapshotPath)
}

// delete handles DELETE /api/events/{id} and removes an event.
func (h *EventHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Events().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
