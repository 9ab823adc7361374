package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"ReadingRoom/internal/ports"
)

// DailyJob is the work the scheduler triggers.
type DailyJob interface {
	DailyUpdate(ctx context.Context, trigger time.Time) error
}

// Scheduler wires the cron-like driver with the daily crawl.
type Scheduler struct {
	driver  ports.Scheduler
	job     DailyJob
	logger  *slog.Logger
	running atomic.Bool
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, job DailyJob, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, job: job, logger: logger}
}

// Start registers the daily crawl with the provided scheduler. A trigger that
// fires while the previous crawl is still running is dropped.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.job == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.Trigger(ctx, trigger)
	})
}

// Trigger runs one scheduled crawl synchronously.
func (s *Scheduler) Trigger(ctx context.Context, trigger time.Time) {
	if !s.running.CompareAndSwap(false, true) {
		s.log(slog.LevelWarn, "previous daily update still running, trigger dropped", "trigger", trigger)
		return
	}
	defer s.running.Store(false)

	if err := s.job.DailyUpdate(ctx, trigger); err != nil {
		s.log(slog.LevelError, "daily update failed", "error", err)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) log(level slog.Level, msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Log(context.Background(), level, msg, args...)
	}
}
