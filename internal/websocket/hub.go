package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/suqify/grocerynet/internal/events"
)

// Message is a change notification broadcast to all connected clients, so
// dashboards can refresh without polling.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
}

// FromEvent converts a bus event into a broadcast message, with Type derived
// from entity and action (e.g. "grocery_updated").
func FromEvent(e events.Event) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", e.Entity, e.Action),
		Entity: e.Entity,
		Action: string(e.Action),
		ID:     e.ID,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

// Feed consumes bus events and broadcasts them until the context is
// cancelled or the channel is closed. Run it in its own goroutine.
func (h *Hub) Feed(ctx context.Context, sub <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			h.Broadcast(FromEvent(e))
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast fans a message out to all connected clients. Clients whose send
// buffer is full miss the message rather than blocking the hub.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping message for slow client", "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
