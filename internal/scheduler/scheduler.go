// Package scheduler drives the periodic background refresh.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// runTimeout bounds a single refresh run.
const runTimeout = 2 * time.Minute

// Refresher re-fetches upstream assets and drops stale state.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler periodically refreshes the climate assets.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a Scheduler running refresher every interval.
func New(refresher Refresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic refresh and kicks one immediate run so the
// service does not wait a full interval for warm caches.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.runOnce); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	go s.runOnce()

	s.logger.Info("refresh scheduler started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Error("scheduled refresh failed", "error", err)
	}
}
