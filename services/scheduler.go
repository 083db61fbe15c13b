package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/valorant-arena/metrics"
)

// Scheduler runs the periodic tournament jobs: automatic status updates followed by
// upcoming announcements.
type Scheduler struct {
	tournaments TournamentService
	announcer   *UpcomingAnnouncer
	interval    time.Duration
	metrics     metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

func NewScheduler(tournaments TournamentService, announcer *UpcomingAnnouncer, interval time.Duration, m metrics.Metrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		tournaments: tournaments,
		announcer:   announcer,
		interval:    interval,
		metrics:     m,
		logger:      nopLogger(logger),
		now:         time.Now,
	}
}

// Run blocks until ctx is canceled. The first tick happens immediately.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs every job once. Errors are logged; a failing job does not skip the next one.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().UTC()
	s.metrics.IncSchedulerRuns()

	updated, err := s.tournaments.AutoUpdateStatuses(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduler: status update failed", slog.Any("error", err))
	} else if updated > 0 {
		s.logger.InfoContext(ctx, "scheduler: tournament statuses updated", slog.Int("count", updated))
	}

	if s.announcer == nil {
		return
	}
	if _, err := s.announcer.Run(ctx, now); err != nil {
		s.logger.ErrorContext(ctx, "scheduler: announcements failed", slog.Any("error", err))
	}
}
