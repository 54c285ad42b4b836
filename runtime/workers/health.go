package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthWorker periodically logs process-level metrics (CPU, RAM, OS
// status) so a silent relay can be told apart from a dead one.
type HealthWorker struct {
	log      *slog.Logger
	interval time.Duration
	state    func() string
}

// NewHealthWorker builds the heartbeat. state reports the current relay
// lifecycle state alongside the process metrics.
func NewHealthWorker(log *slog.Logger, interval time.Duration, state func() string) *HealthWorker {
	return &HealthWorker{log: log, interval: interval, state: state}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	w.log.Info("Starting health worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Debug("Relay health",
				"state", w.state(),
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"pid_status", status,
			)
		}
	}
}

// selfStats retrieves memory, CPU and OS status for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}
	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
