package workers

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// SnapshotProvider is satisfied by the coordinator.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// StatsReporter periodically logs the coordinator counters next to the process health (CPU, RAM, status).
type StatsReporter struct {
	log        *slog.Logger
	provider   SnapshotProvider
	supervisor *Supervisor
	interval   time.Duration
}

func NewStatsReporter(log *slog.Logger, provider SnapshotProvider, supervisor *Supervisor, interval time.Duration) *StatsReporter {
	return &StatsReporter{log: log, provider: provider, supervisor: supervisor, interval: interval}
}

func (w *StatsReporter) Run(ctx context.Context) error {
	if w.interval <= 0 {
		w.log.Info("Stats reporter disabled")
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.report(ctx, p)
		}
	}
}

func (w *StatsReporter) report(ctx context.Context, p *process.Process) {
	snapshot, err := w.provider.Snapshot(ctx)
	if err != nil {
		w.log.Debug("Snapshot unavailable", "error", err)
		return
	}

	attrs := []any{
		"sessions", snapshot.Sessions,
		"rooms", len(snapshot.Rooms),
		"persisted", snapshot.Persisted,
		"failed", snapshot.Failed,
		"delivered", snapshot.Delivered,
		"dropped", snapshot.Dropped,
		"evicted", snapshot.Evicted,
		"in_flight", snapshot.InFlight,
	}
	if w.supervisor != nil {
		attrs = append(attrs, "restarts", w.supervisor.Restarts())
	}

	rss, cpu, status, err := getSelfStats(p)
	if err != nil {
		w.log.Debug("Failed to collect self stats", "error", err)
	} else {
		attrs = append(attrs, "rss_bytes", rss, "cpu_percent", cpu, "status", status)
	}
	w.log.Info("Coordinator stats", attrs...)
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
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
