// Package mirror maintains a graph-shaped secondary view of which supplier
// manages which grocery. It is a derived, eventually-consistent projection of
// the relational responsible-person column, kept in an embedded badger store
// for relationship queries; it is never the source of truth.
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key layout. Edges are stored directionally in both orientations because
// relationship queries run from either side; the unit separator keeps names
// containing ':' unambiguous.
const (
	groceryNodePrefix   = "gnode:"
	supplierNodePrefix  = "snode:"
	nameIndexPrefix     = "gname:"
	managedByEdgePrefix = "edge:managed_by:"
	managesEdgePrefix   = "edge:manages:"
	keySep              = "\x1f"
)

// GroceryNode mirrors a grocery's identity, keyed by name.
type GroceryNode struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// SupplierNode mirrors a supplier's identity, keyed by username.
type SupplierNode struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Store is the badger-backed graph store.
type Store struct {
	db *badger.DB
}

// Open opens a persistent mirror store at path. Badger's own logging is
// routed through the given logger, or disabled when nil.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithSyncWrites(true).WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open mirror store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a mirror store without disk persistence, for tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory mirror store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger adapts slog to badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}
func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}
func (l *badgerLogger) Infof(format string, args ...any) { l.logger.Info(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// GetOrCreateGroceryNode upserts the node for a grocery name. The uid is
// assigned on first creation and stable afterwards.
func (s *Store) GetOrCreateGroceryNode(name string) (*GroceryNode, error) {
	key := []byte(groceryNodePrefix + name)
	var node GroceryNode

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, &node)
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		node = GroceryNode{UID: uuid.NewString(), Name: name}
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, fmt.Errorf("get or create grocery node %q: %w", name, err)
	}
	return &node, nil
}

// GetOrCreateSupplierNode upserts the node for a supplier username.
func (s *Store) GetOrCreateSupplierNode(username, email string) (*SupplierNode, error) {
	key := []byte(supplierNodePrefix + username)
	var node SupplierNode

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, &node)
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		node = SupplierNode{UID: uuid.NewString(), Username: username, Email: email}
		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, fmt.Errorf("get or create supplier node %q: %w", username, err)
	}
	return &node, nil
}

// TrackName records the node name currently in use for a grocery id and
// returns the previously recorded one, or "" on first sight. Nodes are keyed
// by name, so the syncer needs this index to find and prune edges left under
// an old name after a rename.
func (s *Store) TrackName(id int64, name string) (string, error) {
	key := []byte(nameIndexPrefix + strconv.FormatInt(id, 10))
	var previous string

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			if err := item.Value(func(val []byte) error {
				previous = string(val)
				return nil
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if previous == name {
			return nil
		}
		return txn.Set(key, []byte(name))
	})
	if err != nil {
		return "", fmt.Errorf("track grocery name %d: %w", id, err)
	}
	return previous, nil
}

// GroceryNodeByName returns the node, or nil when absent.
func (s *Store) GroceryNodeByName(name string) (*GroceryNode, error) {
	var node *GroceryNode
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(groceryNodePrefix + name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			node = &GroceryNode{}
			return json.Unmarshal(val, node)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get grocery node %q: %w", name, err)
	}
	return node, nil
}

// SupplierNodeByUsername returns the node, or nil when absent.
func (s *Store) SupplierNodeByUsername(username string) (*SupplierNode, error) {
	var node *SupplierNode
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(supplierNodePrefix + username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			node = &SupplierNode{}
			return json.Unmarshal(val, node)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get supplier node %q: %w", username, err)
	}
	return node, nil
}

// Connect ensures the managed_by/manages edge pair exists between a grocery
// and a supplier. Each direction is checked before writing, so repeated
// calls never duplicate an edge.
func (s *Store) Connect(groceryName, username string) error {
	keys := edgeKeys(groceryName, username)
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			_, err := txn.Get(key)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(key, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect %q to %q: %w", groceryName, username, err)
	}
	return nil
}

// Disconnect removes the edge pair. Missing edges are not an error.
func (s *Store) Disconnect(groceryName, username string) error {
	keys := edgeKeys(groceryName, username)
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("disconnect %q from %q: %w", groceryName, username, err)
	}
	return nil
}

// Managers returns the usernames connected to a grocery node.
func (s *Store) Managers(groceryName string) ([]string, error) {
	prefix := []byte(managedByEdgePrefix + groceryName + keySep)
	var usernames []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			usernames = append(usernames, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("managers of %q: %w", groceryName, err)
	}
	return usernames, nil
}

// Manages returns the grocery names connected to a supplier node.
func (s *Store) Manages(username string) ([]string, error) {
	prefix := []byte(managesEdgePrefix + username + keySep)
	var names []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			names = append(names, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manages of %q: %w", username, err)
	}
	return names, nil
}

func edgeKeys(groceryName, username string) [][]byte {
	return [][]byte{
		[]byte(managedByEdgePrefix + groceryName + keySep + username),
		[]byte(managesEdgePrefix + username + keySep + groceryName),
	}
}
