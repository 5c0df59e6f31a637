package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"GroceryScanner/internal/ports"
	"GroceryScanner/pkg/logger"
)

// CronScheduler triggers jobs on a standard five-field cron expression.
type CronScheduler struct {
	spec       string
	runOnStart bool
	logger     *log.Logger

	mu   sync.Mutex
	cron *cron.Cron
	// jobs tracks runs started outside the cron loop (run-on-start).
	jobs sync.WaitGroup
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
// When runOnStart is set the job fires once immediately after Start.
func NewCronScheduler(spec string, runOnStart bool) *CronScheduler {
	return &CronScheduler{spec: spec, runOnStart: runOnStart, logger: logger.New("cron")}
}

// Start registers the job and starts the cron loop. Stopping happens on
// Stop or when ctx is cancelled.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cronLogger := cron.PrintfLogger(c.logger)
	cr := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("cron spec %q: %w", c.spec, err)
	}
	cr.Start()
	c.cron = cr

	if c.runOnStart {
		c.jobs.Add(1)
		go func() {
			defer c.jobs.Done()
			job(time.Now())
		}()
	}

	// Cancellation only stops new triggers; Stop still waits for running jobs.
	go func() {
		<-ctx.Done()
		cr.Stop()
	}()

	return nil
}

// Stop halts the cron loop and waits for running jobs, bounded by ctx.
// It may be called more than once and after ctx cancellation.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.mu.Unlock()
	if cr == nil {
		return nil
	}

	cronDone := cr.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		c.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports the next activation after now, for logging.
func (c *CronScheduler) Next(now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(c.spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("cron spec %q: %w", c.spec, err)
	}
	return sched.Next(now), nil
}
