package workers

import (
	"context"
	"log/slog"
	"time"

	"team-mail/observability"
)

// ReportWorker periodically logs sync-loop counters together with the
// client's own memory and CPU usage.
type ReportWorker struct {
	log      *slog.Logger
	stats    *observability.SyncStats
	interval time.Duration
}

func NewReportWorker(log *slog.Logger, stats *observability.SyncStats, interval time.Duration) *ReportWorker {
	return &ReportWorker{log: log, stats: stats, interval: interval}
}

func (w *ReportWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap := w.stats.Snapshot()

			rss, cpu, err := observability.SelfStats()
			if err != nil {
				w.log.Warn("Failed to collect self stats", "err", err)
			}

			w.log.Info("Sync report",
				"ticks", snap.Ticks,
				"pull_failures", snap.PullFailures,
				"users_merged", snap.UsersMerged,
				"messages_merged", snap.MessagesMerged,
				"last_pull", snap.LastPull,
				"ram_bytes", rss,
				"cpu_percent", cpu,
			)
		}
	}
}
