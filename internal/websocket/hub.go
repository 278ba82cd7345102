package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// BalanceUpdate is pushed to a card owner after a committed transfer.
type BalanceUpdate struct {
	CardID  string `json:"card_id"`
	Balance string `json:"balance"`
}

// Hub fans balance updates out to every open connection of a user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
	h.logger.Debug("websocket connected", zap.String("user_id", userID), zap.Int("connections", len(h.clients[userID])))
}

// Unregister removes client and closes its send channel. Calling it again for
// the same client is a no-op.
func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.clients[userID]
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
	h.logger.Debug("websocket disconnected", zap.String("user_id", userID))
}

// BroadcastBalance never blocks; a client whose buffer is full misses the
// update.
func (h *Hub) BroadcastBalance(userID string, update BalanceUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("encode balance update", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("dropped balance update", zap.String("user_id", userID), zap.String("card_id", update.CardID))
		}
	}
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
