package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
)

// Pruner removes terminal jobs older than the cutoff and reports how many
// records were deleted
type Pruner interface {
	DeleteOlderThan(cutoff time.Time) int
}

// Scheduler handles periodic cleanup of terminal jobs. Active jobs are never
// touched; only completed and failed records age out.
type Scheduler struct {
	store    Pruner
	schedule string
	maxAge   time.Duration
	cron     *cron.Cron
	logger   arbor.ILogger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewScheduler creates a new retention scheduler
func NewScheduler(store Pruner, config *common.RetentionConfig, logger arbor.ILogger) (*Scheduler, error) {
	maxAge, err := time.ParseDuration(config.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("invalid retention max_age %q: %w", config.MaxAge, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:    store,
		schedule: config.Schedule,
		maxAge:   maxAge,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins the scheduled cleanup
func (s *Scheduler) Start() error {
	schedule := s.schedule
	if schedule == "" {
		// Default: hourly
		schedule = "0 0 * * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		common.SafeGoWithContext(s.ctx, s.logger, "retentionPrune", s.prune)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Str("max_age", s.maxAge.String()).
		Msg("Job retention scheduler started")

	return nil
}

// Stop stops the scheduler. Cleanup runs queued after Stop are discarded.
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
	s.logger.Info().Msg("Job retention scheduler stopped")
}

// RunNow triggers an immediate cleanup run
func (s *Scheduler) RunNow() {
	s.logger.Info().Msg("Triggering immediate retention run")
	common.SafeGoWithContext(s.ctx, s.logger, "retentionPrune", s.prune)
}

func (s *Scheduler) prune() {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	removed := s.store.DeleteOlderThan(cutoff)

	if removed > 0 {
		s.logger.Info().
			Int("removed", removed).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Expired jobs removed")
		return
	}

	s.logger.Debug().
		Str("cutoff", cutoff.Format(time.RFC3339)).
		Msg("No expired jobs to remove")
}
