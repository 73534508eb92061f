package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/alert"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// AlertsHandler pushes fired alerts to WebSocket clients. The pipeline calls
// Publish for every alert; connected clients receive it as a JSON message.
type AlertsHandler struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewAlertsHandler creates a new AlertsHandler.
func NewAlertsHandler() *AlertsHandler {
	return &AlertsHandler{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *AlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish sends the alert to all connected clients. Clients that fail to
// receive are dropped.
func (h *AlertsHandler) Publish(al alert.Alert) {
	msg, err := json.Marshal(map[string]any{
		"alert":     al,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("failed to marshal alert: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *AlertsHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
