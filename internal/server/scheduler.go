package server

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler triggers ingestion on a fixed interval while the stored
// settings have cron ingestion enabled.
type Scheduler struct {
	runner   *Runner
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(runner *Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one scheduled check. Settings are re-read so toggling cron
// ingestion takes effect without a restart.
func (s *Scheduler) Tick(ctx context.Context) {
	settings, err := s.runner.Settings(ctx)
	if err != nil {
		s.logger.Error("scheduler: loading settings", "error", err)
		return
	}
	if !settings.CronIngestEnabled {
		s.logger.Debug("scheduler: cron ingestion disabled")
		return
	}

	stats, err := s.runner.Ingest(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("scheduler: skipping tick, run in progress")
	case err != nil:
		s.logger.Error("scheduled ingestion failed", "error", err)
	default:
		s.logger.Info("scheduled ingestion done", "analyzed", stats.Analyzed, "new", stats.ClusteredNew, "existing", stats.ClusteredExisting)
	}
}
