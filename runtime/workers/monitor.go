package workers

import (
	"context"
	"log/slog"
	"time"

	"room-relay/contract"
)

// MonitorWorker drives the relay's fault monitor once per tick. The
// probe is a non-blocking completion poll, so the tick goroutine never
// hangs on store I/O.
type MonitorWorker struct {
	log      *slog.Logger
	checker  contract.HealthChecker
	interval time.Duration
}

func NewMonitorWorker(log *slog.Logger, checker contract.HealthChecker, interval time.Duration) *MonitorWorker {
	return &MonitorWorker{log: log, checker: checker, interval: interval}
}

func (w *MonitorWorker) Run(ctx context.Context) error {
	w.log.Info("Starting subscription monitor worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.checker.Check()
		}
	}
}
