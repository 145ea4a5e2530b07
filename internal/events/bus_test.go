package events

import (
	"log/slog"
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewBus(slog.Default())
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	b.Publish(Event{Entity: "grocery", Action: ActionCreated, ID: 7})

	for i, sub := range []<-chan Event{sub1, sub2} {
		select {
		case e := <-sub:
			if e.Entity != "grocery" || e.Action != ActionCreated || e.ID != 7 {
				t.Errorf("subscriber %d got %+v", i, e)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	b := NewBus(slog.Default())
	sub := b.Subscribe()

	// Never drained; the buffer fills and further publishes are dropped
	// without blocking.
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(Event{Entity: "item", Action: ActionUpdated, ID: int64(i)})
	}

	if got := len(sub); got != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", got, subscriberBuffer)
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	b := NewBus(slog.Default())
	sub := b.Subscribe()

	b.Close()
	b.Publish(Event{Entity: "grocery", Action: ActionDeleted, ID: 1})

	if _, open := <-sub; open {
		t.Error("subscriber channel should be closed")
	}
}
