package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/circuitlink/backend/pkg/logger"
)

// Hub tracks live websocket connections per user and fans events out to
// them. A user may hold several simultaneous connections (tabs, devices).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*websocket.Conn]bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*websocket.Conn]bool)}
}

// Add registers a connection for a user.
func (h *Hub) Add(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*websocket.Conn]bool)
	}
	h.clients[userID][conn] = true
}

// Remove unregisters a connection and closes it.
func (h *Hub) Remove(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
	conn.Close()
}

// Push sends a JSON payload to every live connection of a user. A nil Hub is
// a no-op, and dead connections are dropped from the registry.
func (h *Hub) Push(userID string, payload any) {
	if h == nil {
		return
	}
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[userID]))
	for conn := range h.clients[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			logger.S.Debugw("dropping dead websocket", "user", userID, "err", err)
			h.Remove(userID, conn)
		}
	}
}
