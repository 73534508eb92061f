// Package api provides the HTTP API handlers for the detection dashboard.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/store"
)

// RuleHandler handles HTTP requests for alert rule resources.
type RuleHandler struct {
	store *store.Store

	// OnChange is called after a rule is created, updated, or deleted so
	// the running matcher can pick up the new rule set.
	OnChange func()
}

// NewRuleHandler creates a new RuleHandler with the given store.
func NewRuleHandler(s *store.Store) *RuleHandler {
	return &RuleHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *RuleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/rules or /api/rules/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/rules")
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

type createRuleRequest struct {
	Name          string  `json:"name"`
	Label         string  `json:"label"`
	MinConfidence float64 `json:"min_confidence"`
	MinFrames     int     `json:"min_frames"`
	CooldownSec   int     `json:"cooldown_sec"`
}

type updateRuleRequest struct {
	Name          string   `json:"name"`
	Label         string   `json:"label"`
	MinConfidence *float64 `json:"min_confidence"`
	MinFrames     *int     `json:"min_frames"`
	CooldownSec   *int     `json:"cooldown_sec"`
}

type ruleResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Label         string  `json:"label"`
	MinConfidence float64 `json:"min_confidence"`
	MinFrames     int     `json:"min_frames"`
	CooldownSec   int     `json:"cooldown_sec"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type listRulesResponse struct {
	Rules []ruleResponse `json:"rules"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toRuleResponse converts a store.Rule to a ruleResponse.
func toRuleResponse(r *store.Rule) ruleResponse {
	return ruleResponse{
		ID:            r.ID,
		Name:          r.Name,
		Label:         r.Label,
		MinConfidence: r.MinConfidence,
		MinFrames:     r.MinFrames,
		CooldownSec:   r.CooldownSec,
		CreatedAt:     r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// notifyChange signals that the persisted rule set changed.
func (h *RuleHandler) notifyChange() {
	if h.OnChange != nil {
		h.OnChange()
	}
}

// list handles GET /api/rules and returns all rules.
func (h *RuleHandler) list(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.Rules().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules")
		return
	}

	response := listRulesResponse{
		Rules: make([]ruleResponse, 0, len(rules)),
	}
	for _, rule := range rules {
		response.Rules = append(response.Rules, toRuleResponse(rule))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/rules/{id} and returns a single rule.
func (h *RuleHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rule, err := h.store.Rules().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get rule")
		return
	}

	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

// create handles POST /api/rules and creates a new rule.
func (h *RuleHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if !store.ValidRuleLabel(req.Label) {
		writeError(w, http.StatusBadRequest, "Label must be one of: fire, smoke, human")
		return
	}

	minConfidence := req.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 0.5
	}
	if minConfidence > 1 {
		writeError(w, http.StatusBadRequest, "min_confidence must be at most 1")
		return
	}

	minFrames := req.MinFrames
	if minFrames <= 0 {
		minFrames = 3
	}

	cooldownSec := req.CooldownSec
	if cooldownSec <= 0 {
		cooldownSec = 30
	}

	rule := &store.Rule{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Label:         req.Label,
		MinConfidence: minConfidence,
		MinFrames:     minFrames,
		CooldownSec:   cooldownSec,
	}

	if err := h.store.Rules().Create(rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create rule")
		return
	}

	h.notifyChange()
	writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}

// update handles PUT /api/rules/{id} and updates an existing rule.
func (h *RuleHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	rule, err := h.store.Rules().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get rule")
		return
	}

	var req updateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Label != "" {
		if !store.ValidRuleLabel(req.Label) {
			writeError(w, http.StatusBadRequest, "Label must be one of: fire, smoke, human")
			return
		}
		rule.Label = req.Label
	}
	if req.MinConfidence != nil {
		if *req.MinConfidence <= 0 || *req.MinConfidence > 1 {
			writeError(w, http.StatusBadRequest, "min_confidence must be in (0, 1]")
			return
		}
		rule.MinConfidence = *req.MinConfidence
	}
	if req.MinFrames != nil {
		if *req.MinFrames <= 0 {
			writeError(w, http.StatusBadRequest, "min_frames must be positive")
			return
		}
		rule.MinFrames = *req.MinFrames
	}
	if req.CooldownSec != nil {
		if *req.CooldownSec < 0 {
			writeError(w, http.StatusBadRequest, "cooldown_sec must not be negative")
			return
		}
		rule.CooldownSec = *req.CooldownSec
	}

	if err := h.store.Rules().Update(rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update rule")
		return
	}

	h.notifyChange()
	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

// delete handles DELETE /api/rules/{id} and removes a rule.
func (h *RuleHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Rules().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete rule")
		return
	}

	h.notifyChange()
	w.WriteHeader(http.StatusNoContent)
}
