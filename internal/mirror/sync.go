package mirror

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/suqify/grocerynet/internal/events"
	"github.com/suqify/grocerynet/internal/store"
)

const (
	retryBase   = 100 * time.Millisecond
	retryMax    = 5
	syncTimeout = 10 * time.Second
)

// Syncer consumes grocery change events and reconciles the graph mirror in
// the background, so relational writes never block on the mirror. Failed
// reconciliations are retried with exponential backoff and dropped with a
// log entry after the retry budget is spent; the next save of the same
// grocery repairs any gap.
type Syncer struct {
	mirror    *Store
	groceries *store.GroceryStore
	users     *store.UserStore
	sub       <-chan events.Event
	logger    *slog.Logger
	done      chan struct{}
}

func NewSyncer(mirror *Store, groceries *store.GroceryStore, users *store.UserStore, sub <-chan events.Event, logger *slog.Logger) *Syncer {
	return &Syncer{
		mirror:    mirror,
		groceries: groceries,
		users:     users,
		sub:       sub,
		logger:    logger.With("component", "mirror"),
		done:      make(chan struct{}),
	}
}

// Start launches the consumer goroutine. It runs until the context is
// cancelled or the event channel is closed.
func (s *Syncer) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-s.sub:
				if !ok {
					return
				}
				if e.Entity != events.EntityGrocery {
					continue
				}
				s.syncWithRetry(ctx, e.ID)
			}
		}
	}()
}

// Wait blocks until the consumer goroutine has exited.
func (s *Syncer) Wait() {
	<-s.done
}

func (s *Syncer) syncWithRetry(ctx context.Context, groceryID int64) {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(retryMax, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.Sync(groceryID); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("mirror sync dropped after retries", "grocery_id", groceryID, "error", err)
	}
}

// Sync reconciles the mirror for one grocery: upserts its node, connects it
// to its current responsible supplier, and prunes edges to suppliers who no
// longer manage it. Idempotent.
func (s *Syncer) Sync(groceryID int64) error {
	grocery, err := s.groceries.GetByID(groceryID)
	if err != nil {
		return err
	}
	if grocery == nil {
		return nil
	}

	// Nodes are keyed by name, so a rename leaves the old node behind.
	// Prune its edges before reconciling under the new name.
	previous, err := s.mirror.TrackName(grocery.ID, grocery.Name)
	if err != nil {
		return err
	}
	if previous != "" && previous != grocery.Name {
		stale, err := s.mirror.Managers(previous)
		if err != nil {
			return err
		}
		for _, username := range stale {
			if err := s.mirror.Disconnect(previous, username); err != nil {
				return err
			}
		}
	}

	if _, err := s.mirror.GetOrCreateGroceryNode(grocery.Name); err != nil {
		return err
	}

	current := ""
	if ownerID, ok := grocery.Owner(); ok {
		user, err := s.users.GetByID(ownerID)
		if err != nil {
			return err
		}
		if user != nil {
			if _, err := s.mirror.GetOrCreateSupplierNode(user.Username, user.Email); err != nil {
				return err
			}
			if err := s.mirror.Connect(grocery.Name, user.Username); err != nil {
				return err
			}
			current = user.Username
		}
	}

	managers, err := s.mirror.Managers(grocery.Name)
	if err != nil {
		return err
	}
	for _, username := range managers {
		if username != current {
			if err := s.mirror.Disconnect(grocery.Name, username); err != nil {
				return err
			}
		}
	}
	return nil
}
