// Package events carries entity change notifications between the write path
// and its observers (the relationship mirror syncer and the websocket feed).
// Publishing never blocks a request handler: a subscriber that falls behind
// loses messages rather than stalling writes.
package events

import (
	"log/slog"
	"sync"
)

const subscriberBuffer = 64

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Entity names carried on events.
const (
	EntityGrocery = "grocery"
	EntityItem    = "item"
	EntityIncome  = "income"
)

// Event describes one committed entity mutation. Observers that need more
// than the id re-read current state from the store, which keeps replays and
// out-of-order delivery harmless.
type Event struct {
	Entity string
	Action Action
	ID     int64
}

// Bus is an in-process fan-out of change events.
type Bus struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe returns a channel receiving all events published after the call.
// The channel is closed by Close.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the event to every subscriber. Full subscribers are
// skipped with a warning.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("event dropped, subscriber behind",
				"entity", e.Entity, "action", string(e.Action), "id", e.ID)
		}
	}
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
}
