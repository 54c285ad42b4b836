// Package runtime holds the subscription state machine of the relay:
// the watermark-bounded live query, its fault monitor, and the relay
// service composing them. It orchestrates without containing storage
// or presentation logic.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"room-relay/contract"
	"room-relay/domain"
	relayerrors "room-relay/errors"
)

// Subscription owns one live query against the store (room filter +
// timestamp >= watermark, ascending) and the watermark itself.
//
// The watermark is monotonically non-decreasing for the lifetime of the
// instance. Because the query's timestamp bound is fixed at open time,
// advancing the watermark means closing the current query and opening a
// new one from the new bound.
//
// Subscription state is guarded by one mutex: only the batch-delivery
// goroutine and the monitor tick touch it, serialized.
type Subscription struct {
	mu        sync.Mutex
	log       *slog.Logger
	col       contract.Collection
	room      string
	emit      func(domain.Entry)
	watermark time.Time
	handle    contract.LiveQuery
}

// NewSubscription wires a subscription to a collection. emit is invoked
// synchronously on the delivering goroutine for every accepted entry,
// without the subscription lock held, so handlers may call Stop.
func NewSubscription(log *slog.Logger, col contract.Collection, room string, emit func(domain.Entry)) *Subscription {
	return &Subscription{log: log, col: col, room: domain.NormalizeRoom(room), emit: emit}
}

// Start sets the initial watermark and opens the live query. Calling
// Start again without an intervening Stop is an error.
func (s *Subscription) Start(ctx context.Context, initialWatermark time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		return relayerrors.ErrSubscriptionStarted
	}
	s.watermark = initialWatermark
	return s.open(ctx)
}

// open requires s.mu held.
func (s *Subscription) open(ctx context.Context) error {
	h, err := s.col.OpenQuery(ctx, s.room, s.watermark)
	if err != nil {
		return err
	}
	s.handle = h
	go s.consume(ctx, h)
	s.log.Debug("Live query opened", "room", s.room, "watermark", s.watermark)
	return nil
}

// consume feeds delivered batches into onBatch until the handle's
// channel closes. After a restart the old handle's remaining buffered
// batches are still drained here: the store will not re-deliver them on
// the new query, and the watermark check absorbs any overlap.
func (s *Subscription) consume(ctx context.Context, h contract.LiveQuery) {
	for batch := range h.Batches() {
		s.onBatch(ctx, batch)
	}
}

// onBatch filters stale entries, emits accepted ones in delivered order
// and, when the watermark advanced, restarts the live query from the new
// bound (old handle closed and awaited first; exactly one handle is live
// at a time).
func (s *Subscription) onBatch(ctx context.Context, entries []domain.Entry) {
	s.mu.Lock()
	if s.handle == nil {
		// Stopped while this batch was in flight.
		s.mu.Unlock()
		return
	}

	candidate := s.watermark
	var accepted []domain.Entry
	for _, e := range entries {
		// The filter bound is inclusive, so a restart re-delivers the
		// entry sitting exactly at the watermark. <= is stale.
		if !e.At.After(s.watermark) {
			continue
		}
		if e.At.After(candidate) {
			candidate = e.At
		}
		accepted = append(accepted, e)
	}

	if candidate.After(s.watermark) {
		old := s.handle
		s.handle = nil
		old.Close()
		s.watermark = candidate
		if err := s.open(ctx); err != nil {
			s.log.Error("Reopening live query failed", "room", s.room, "err", err)
		}
	}
	s.mu.Unlock()

	// Emitted without the lock: a handler may reentrantly stop the
	// subscription without deadlocking against this batch.
	for _, e := range accepted {
		s.emit(e)
	}
}

// Stop closes the current handle and awaits its termination. Calling it
// on an already-stopped or never-started subscription is a no-op.
func (s *Subscription) Stop() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()
	if h == nil {
		return
	}
	h.Close()
}

// Handle exposes the current live query to the fault monitor, nil when
// the subscription is stopped.
func (s *Subscription) Handle() contract.LiveQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Watermark returns the current watermark.
func (s *Subscription) Watermark() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}
