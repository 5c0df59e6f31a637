package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCronSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("not a cron", false)
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
}

func TestCronSchedulerRunOnStart(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("0 3 * * *", true)
	fired := make(chan time.Time, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx, func(ts time.Time) { fired <- ts }); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not run on start")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestCronSchedulerNext(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("30 6 * * *", false)
	now := time.Date(2025, time.March, 20, 7, 0, 0, 0, time.UTC)
	next, err := s.Next(now)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	want := time.Date(2025, time.March, 21, 6, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("Next = %v, want %v", next, want)
	}
}

func TestCronSchedulerStopWaitsForRunningJob(t *testing.T) {
	t.Parallel()

	for _, cancelFirst := range []bool{false, true} {
		s := NewCronScheduler("0 3 * * *", true)
		started := make(chan struct{})
		var finished atomic.Bool

		ctx, cancel := context.WithCancel(context.Background())
		err := s.Start(ctx, func(time.Time) {
			close(started)
			time.Sleep(300 * time.Millisecond)
			finished.Store(true)
		})
		if err != nil {
			cancel()
			t.Fatalf("Start: %v", err)
		}

		<-started
		if cancelFirst {
			// Let the cancellation watcher reach the cron loop before Stop.
			cancel()
			time.Sleep(20 * time.Millisecond)
		}

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Stop(stopCtx); err != nil {
			t.Fatalf("cancelFirst=%v: Stop: %v", cancelFirst, err)
		}
		if !finished.Load() {
			t.Fatalf("cancelFirst=%v: Stop returned while the job was still running", cancelFirst)
		}
		stopCancel()
		cancel()
	}
}

func TestCronSchedulerStopHonoursDeadline(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("0 3 * * *", true)
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	if err := s.Start(context.Background(), func(time.Time) {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started

	stopCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Stop(stopCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
