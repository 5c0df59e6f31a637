package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"GroceryScanner/internal/ports"
)

// Scheduler wires the cron-like driver with the batch use case.
type Scheduler struct {
	driver      ports.Scheduler
	batch       *BatchScheduler
	batchSize   int
	pacingDelay time.Duration
	logger      *slog.Logger
	running     sync.Mutex
}

// NewScheduler returns a helper to start/stop recurring sweeps.
func NewScheduler(driver ports.Scheduler, batch *BatchScheduler, batchSize int, pacingDelay time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		driver:      driver,
		batch:       batch,
		batchSize:   batchSize,
		pacingDelay: pacingDelay,
		logger:      logger,
	}
}

// Start registers the sweep with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.batch == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.runOnce(ctx, trigger)
	})
}

// runOnce skips a trigger while the previous sweep is still running.
func (s *Scheduler) runOnce(ctx context.Context, trigger time.Time) {
	if !s.running.TryLock() {
		s.logger.Warn("previous sweep still running, skipping trigger", "trigger", trigger)
		return
	}
	defer s.running.Unlock()

	summary, err := s.batch.Sweep(ctx, s.batchSize, s.pacingDelay)
	if err != nil {
		s.logger.Error("scheduled sweep failed", "trigger", trigger, "error", err)
		return
	}
	s.logger.Info("scheduled sweep done", "run_id", summary.RunID, "processed", summary.Processed)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
