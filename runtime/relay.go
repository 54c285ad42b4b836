package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"room-relay/contract"
	"room-relay/domain"
)

// State is the relay lifecycle:
// Uninitialized -> Connecting -> Ready -> (Faulted | ShuttingDown) -> Terminated.
// A faulted relay never transitions back to Connecting on its own.
type State int32

const (
	Uninitialized State = iota
	Connecting
	Ready
	Faulted
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Faulted:
		return "faulted"
	case ShuttingDown:
		return "shutting down"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Relay is the outward-facing service: it owns the store connection
// lifecycle, resolves the room code, runs the watermark subscription and
// exposes ready/message/fault events to its embedder. Handlers are
// notified synchronously on the delivering goroutine, in registration
// order.
type Relay struct {
	mu        sync.Mutex
	log       *slog.Logger
	store     contract.Store
	fixedRoom string
	gen       *domain.CodeGenerator
	state     State
	roomCode  string
	sub       *Subscription
	monitor   *FaultMonitor

	readyHandlers   []func(roomCode string)
	messageHandlers []func(payload string)
	faultHandlers   []func(err error)
}

// NewRelay builds a relay over the given store. roomCode pins the room;
// leave it empty to generate one on Start.
func NewRelay(log *slog.Logger, store contract.Store, roomCode string) *Relay {
	return &Relay{
		log:       log,
		store:     store,
		fixedRoom: domain.NormalizeRoom(roomCode),
		gen:       domain.NewCodeGenerator(),
		state:     Uninitialized,
	}
}

// OnReady registers a handler fired once the relay reaches Ready,
// carrying the resolved room code.
func (r *Relay) OnReady(fn func(roomCode string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readyHandlers = append(r.readyHandlers, fn)
}

// OnMessage registers a handler fired for every accepted entry,
// carrying the payload only; room code and timestamp are relay-internal.
func (r *Relay) OnMessage(fn func(payload string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messageHandlers = append(r.messageHandlers, fn)
}

// OnFault registers a handler fired once when the subscription is torn
// down and the relay transitions to Faulted. err is nil when the
// listening task terminated cleanly.
func (r *Relay) OnFault(fn func(err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faultHandlers = append(r.faultHandlers, fn)
}

// Start connects to the store, resolves the room code and opens the
// subscription with watermark = now, so entries written before service
// start are never delivered. Connect failures are logged and returned;
// the relay does not reach Ready.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	r.state = Connecting
	r.mu.Unlock()

	col, err := r.store.Connect(ctx)
	if err != nil {
		r.mu.Lock()
		r.state = Faulted
		r.mu.Unlock()
		r.log.Error("Store connection failed", "err", err)
		return fmt.Errorf("relay start: %w", err)
	}

	room := r.fixedRoom
	if room == "" {
		room = r.gen.Generate()
	}

	sub := NewSubscription(r.log, col, room, r.emitEntry)
	if err := sub.Start(ctx, time.Now().UTC()); err != nil {
		r.mu.Lock()
		r.state = Faulted
		r.mu.Unlock()
		r.log.Error("Subscription start failed", "room", room, "err", err)
		return fmt.Errorf("relay start: %w", err)
	}

	r.mu.Lock()
	r.roomCode = room
	r.sub = sub
	r.monitor = NewFaultMonitor(r.log, sub, r.subscriptionTornDown)
	r.state = Ready
	handlers := append([]func(string){}, r.readyHandlers...)
	r.mu.Unlock()

	r.log.Info("Relay ready", "room", room)
	for _, fn := range handlers {
		fn(room)
	}
	return nil
}

// CheckSubscription is the per-tick health probe, delegated to the
// fault monitor. It never blocks on I/O.
func (r *Relay) CheckSubscription() {
	r.mu.Lock()
	m := r.monitor
	r.mu.Unlock()
	if m != nil {
		m.Check()
	}
}

// Stop unsubscribes, awaits the listening task and releases the store
// connection. Safe to call from shutdown paths in any state.
func (r *Relay) Stop() {
	r.mu.Lock()
	r.state = ShuttingDown
	sub := r.sub
	r.sub = nil
	r.monitor = nil
	r.mu.Unlock()

	if sub != nil {
		sub.Stop()
	}
	if err := r.store.Close(); err != nil {
		r.log.Warn("Store close failed", "err", err)
	}

	r.mu.Lock()
	r.state = Terminated
	r.mu.Unlock()
	r.log.Info("Relay terminated")
}

// State returns the current lifecycle state.
func (r *Relay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// RoomCode returns the resolved room code, empty before Ready.
func (r *Relay) RoomCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomCode
}

func (r *Relay) emitEntry(e domain.Entry) {
	r.mu.Lock()
	handlers := append([]func(string){}, r.messageHandlers...)
	r.mu.Unlock()
	for _, fn := range handlers {
		fn(e.Payload)
	}
}

// subscriptionTornDown marks the relay faulted once the monitor tore the
// subscription down. Shutdown also stops the subscription, but goes
// through Stop, not through the monitor.
func (r *Relay) subscriptionTornDown(err error) {
	r.mu.Lock()
	if r.state != Ready {
		r.mu.Unlock()
		return
	}
	r.state = Faulted
	handlers := append([]func(error){}, r.faultHandlers...)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(err)
	}
}
