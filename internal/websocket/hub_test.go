package websocket

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/suqify/grocerynet/internal/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFromEvent(t *testing.T) {
	msg := FromEvent(events.Event{Entity: events.EntityGrocery, Action: events.ActionUpdated, ID: 7})
	if msg.Type != "grocery_updated" {
		t.Errorf("type = %q, want grocery_updated", msg.Type)
	}
	if msg.Entity != "grocery" || msg.Action != "updated" || msg.ID != 7 {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(discardLogger())

	first := NewClient(hub, nil)
	second := NewClient(hub, nil)
	hub.Register(first)
	hub.Register(second)

	hub.Broadcast(Message{Type: "item_created", Entity: "item", Action: "created", ID: 3})

	for _, c := range []*Client{first, second} {
		select {
		case msg := <-c.send:
			if msg.Type != "item_created" || msg.ID != 3 {
				t.Errorf("unexpected message: %+v", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	hub := NewHub(discardLogger())
	c := NewClient(hub, nil)
	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel still open after unregister")
	}

	// Unregistering twice must not panic.
	hub.Unregister(c)
}

func TestBroadcastDropsWhenClientBufferFull(t *testing.T) {
	hub := NewHub(discardLogger())
	c := NewClient(hub, nil)
	hub.Register(c)

	for i := 0; i < sendBufferSize+10; i++ {
		hub.Broadcast(Message{Type: "income_created", Entity: "income", Action: "created", ID: int64(i)})
	}
	if len(c.send) != sendBufferSize {
		t.Errorf("buffered = %d, want %d", len(c.send), sendBufferSize)
	}
}

func TestFeedBroadcastsBusEvents(t *testing.T) {
	hub := NewHub(discardLogger())
	c := NewClient(hub, nil)
	hub.Register(c)

	bus := events.NewBus(discardLogger())
	defer bus.Close()
	sub := bus.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Feed(ctx, sub)

	bus.Publish(events.Event{Entity: events.EntityGrocery, Action: events.ActionCreated, ID: 1})

	select {
	case msg := <-c.send:
		if msg.Type != "grocery_created" {
			t.Errorf("type = %q, want grocery_created", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("feed did not deliver bus event")
	}
}
