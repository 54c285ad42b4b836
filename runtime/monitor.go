package runtime

import (
	"log/slog"

	relayerrors "room-relay/errors"
)

// FaultMonitor inspects the subscription's listening task once per
// scheduler tick. It classifies terminal states and performs safe
// teardown; it never reopens a subscription. Recovery after a fault is
// an explicit external action, such as restarting the whole relay.
type FaultMonitor struct {
	log     *slog.Logger
	sub     *Subscription
	onFault func(error)
}

// NewFaultMonitor wires the monitor to a subscription. onFault, if
// non-nil, is invoked once per teardown with the terminal error (nil for
// a clean termination).
func NewFaultMonitor(log *slog.Logger, sub *Subscription, onFault func(error)) *FaultMonitor {
	return &FaultMonitor{log: log, sub: sub, onFault: onFault}
}

// Check polls the listening task's completion state without blocking.
// Teardown is only awaited once termination is already known, a brief
// bounded wait.
func (m *FaultMonitor) Check() {
	h := m.sub.Handle()
	if h == nil {
		return
	}
	select {
	case <-h.Done():
	default:
		// Still listening, leave it running.
		return
	}

	err := h.Err()
	switch {
	case err == nil:
		// Termination without error is unexpected under normal
		// operation and torn down the same as a fault.
		m.log.Debug("Live query terminated without error, tearing down")
	case relayerrors.IsIndexRequired(err):
		m.log.Error("Live query needs a store index; create it and restart the relay", "err", err)
	default:
		m.log.Error("Live query faulted", "err", err)
	}

	m.sub.Stop()
	if m.onFault != nil {
		m.onFault(err)
	}
}
