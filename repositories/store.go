package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"room-relay/contract"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore owns the BadgerDB connection used as the relay transport.
// With an empty path the database lives purely in memory: the store is a
// live transport, not an offline cache, so local persistence stays off
// and every reader observes the server's current state.
type BadgerStore struct {
	mu   sync.Mutex
	log  *slog.Logger
	path string
	db   *badger.DB
	col  contract.Collection
}

func NewBadgerStore(log *slog.Logger, path string) *BadgerStore {
	return &BadgerStore{log: log, path: path}
}

// Connect tears down any prior connection fully (drop local data, close)
// before opening a fresh one, so no stale listener survives a re-init.
func (s *BadgerStore) Connect(ctx context.Context) (contract.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.db != nil {
		s.log.Info("Tearing down previous store connection")
		if err := s.db.DropAll(); err != nil {
			s.log.Warn("Dropping local data failed", "err", err)
		}
		_ = s.db.Close()
		s.db = nil
		s.col = nil
	}

	opts := badger.DefaultOptions(s.path).WithLoggingLevel(badger.ERROR)
	if s.path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store connect: %w", err)
	}
	s.db = db
	s.col = NewEntryRepository(db, s.log)
	return s.col, nil
}

// Collection returns the current collection, nil before Connect.
// Producers use it to reach the append primitive directly.
func (s *BadgerStore) Collection() contract.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.col
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.col = nil
	return err
}
