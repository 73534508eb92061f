package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/store"
)

// NotificationHandler handles HTTP requests for notification resources, the
// bindings between alert rules and notification plugins.
type NotificationHandler struct {
	store *store.Store
}

// NewNotificationHandler creates a new NotificationHandler with the given store.
func NewNotificationHandler(s *store.Store) *NotificationHandler {
	return &NotificationHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *NotificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/notifications or /api/notifications/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/notifications")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createNotificationRequest struct {
	RuleID     string          `json:"rule_id"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
}

type updateNotificationRequest struct {
	RuleID     string          `json:"rule_id"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type notificationResponse struct {
	ID         string          `json:"id"`
	RuleID     string          `json:"rule_id"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listNotificationsResponse struct {
	Notifications []notificationResponse `json:"notifications"`
}

// toNotificationResponse converts a store.Notification to a notificationResponse.
func toNotificationResponse(n *store.Notification) notificationResponse {
	config := n.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return notificationResponse{
		ID:         n.ID,
		RuleID:     n.RuleID,
		PluginName: n.PluginName,
		ActionName: n.ActionName,
		Config:     config,
		Enabled:    n.Enabled,
		CreatedAt:  n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// list handles GET /api/notifications, optionally filtered by rule_id.
func (h *NotificationHandler) list(w http.ResponseWriter, r *http.Request) {
	var notifications []*store.Notification
	var err error

	if ruleID := r.URL.Query().Get("rule_id"); ruleID != "" {
		notifications, err = h.store.Notifications().GetByRuleID(ruleID)
	} else {
		notifications, err = h.store.Notifications().List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}

	response := listNotificationsResponse{
		Notifications: make([]notificationResponse, 0, len(notifications)),
	}
	for _, n := range notifications {
		response.Notifications = append(response.Notifications, toNotificationResponse(n))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/notifications/{id} and returns a single notification.
func (h *NotificationHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	notification, err := h.store.Notifications().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get notification")
		return
	}

	writeJSON(w, http.StatusOK, toNotificationResponse(notification))
}

// create handles POST /api/notifications and creates a new notification.
func (h *NotificationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.RuleID == "" {
		writeError(w, http.StatusBadRequest, "rule_id is required")
		return
	}
	if req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	}
	if req.ActionName == "" {
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}

	// Verify the rule exists
	if _, err := h.store.Rules().GetByID(req.RuleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify rule")
		return
	}

	config := req.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	notification := &store.Notification{
		ID:         uuid.New().String(),
		RuleID:     req.RuleID,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     config,
		Enabled:    true,
	}

	if err := h.store.Notifications().Create(notification); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create notification")
		return
	}

	writeJSON(w, http.StatusCreated, toNotificationResponse(notification))
}

// update handles PUT /api/notifications/{id} and updates an existing notification.
func (h *NotificationHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	notification, err := h.store.Notifications().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get notification")
		return
	}

	var req updateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.RuleID != "" {
		if _, err := h.store.Rules().GetByID(req.RuleID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Rule not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to verify rule")
			return
		}
		notification.RuleID = req.RuleID
	}
	if req.PluginName != "" {
		notification.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		notification.ActionName = req.ActionName
	}
	if req.Config != nil {
		notification.Config = req.Config
	}
	if req.Enabled != nil {
		notification.Enabled = *req.Enabled
	}

	if err := h.store.Notifications().Update(notification); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update notification")
		return
	}

	writeJSON(w, http.StatusOK, toNotificationResponse(notification))
}

// delete handles DELETE /api/notifications/{id} and removes a notification.
func (h *NotificationHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Notifications().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
