package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"GroceryScanner/internal/domain"
	"GroceryScanner/internal/filter"
	"GroceryScanner/internal/ports"
)

// LocationTracker is the slice of tracker behaviour the batch loop needs.
type LocationTracker interface {
	Initialize(ctx context.Context, locationIDs []string) error
	RecomputeAll(ctx context.Context, now time.Time) ([]domain.LocationTrackingRecord, error)
	SelectStale(ctx context.Context) ([]string, error)
	MarkRetrieved(ctx context.Context, locationID string, now time.Time) error
}

// BatchDeps wires all driven adapters into the batch scheduler.
type BatchDeps struct {
	Tracker   LocationTracker
	Fetcher   ports.ProductFetcher
	Sink      ports.ProductSink
	Filter    filter.Policy
	Locations ports.LocationSource
	Locker    ports.Locker
	Notifier  ports.Notifier
	Logger    *slog.Logger
	// Clock and Sleep default to the wall clock; tests replace them.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// BatchScheduler refreshes the next stale locations one at a time.
type BatchScheduler struct {
	tracker   LocationTracker
	fetcher   ports.ProductFetcher
	sink      ports.ProductSink
	filter    filter.Policy
	locations ports.LocationSource
	locker    ports.Locker
	notifier  ports.Notifier
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	newRunID  func() string
}

// NewBatchScheduler constructs the orchestration component.
func NewBatchScheduler(deps BatchDeps) *BatchScheduler {
	b := &BatchScheduler{
		tracker:   deps.Tracker,
		fetcher:   deps.Fetcher,
		sink:      deps.Sink,
		filter:    deps.Filter,
		locations: deps.Locations,
		locker:    deps.Locker,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		now:       deps.Clock,
		sleep:     deps.Sleep,
		newRunID:  uuid.NewString,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.sleep == nil {
		b.sleep = sleepContext
	}
	return b
}

// Sweep takes the single-writer lock, seeds the tracker from the master
// location list, runs one batch and publishes its digest.
func (b *BatchScheduler) Sweep(ctx context.Context, batchSize int, pacingDelay time.Duration) (domain.BatchSummary, error) {
	if b.locker != nil {
		if err := b.locker.Acquire(); err != nil {
			return domain.BatchSummary{}, fmt.Errorf("acquire tracker lock: %w", err)
		}
		defer func() {
			if err := b.locker.Release(); err != nil {
				b.logger.Warn("release tracker lock", "error", err)
			}
		}()
	}

	var ids []string
	if b.locations != nil {
		var err error
		ids, err = b.locations.LocationIDs(ctx)
		if err != nil {
			return domain.BatchSummary{}, fmt.Errorf("load locations: %w", err)
		}
	}
	if err := b.tracker.Initialize(ctx, ids); err != nil {
		return domain.BatchSummary{}, err
	}

	summary, err := b.RunBatch(ctx, batchSize, pacingDelay)
	if err != nil {
		return summary, err
	}

	b.publish(ctx, summary)
	return summary, nil
}

// RunBatch refreshes at most batchSize stale locations in store order.
// A failed fetch is recorded and skipped; tracker or product store failures abort.
func (b *BatchScheduler) RunBatch(ctx context.Context, batchSize int, pacingDelay time.Duration) (domain.BatchSummary, error) {
	summary := domain.BatchSummary{RunID: b.newRunID(), StartedAt: b.now()}
	if batchSize <= 0 {
		return summary, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	if _, err := b.tracker.RecomputeAll(ctx, summary.StartedAt); err != nil {
		return summary, err
	}

	candidates, err := b.tracker.SelectStale(ctx)
	if err != nil {
		return summary, err
	}
	summary.Stale = len(candidates)

	logger := b.logger.With("run_id", summary.RunID)
	logger.Info("batch started", "stale", len(candidates), "batch_size", batchSize)

	for i, locationID := range candidates {
		if summary.Processed >= batchSize {
			break
		}
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = b.now()
			return summary, err
		}

		summary.Attempted++
		kept, err := b.refreshLocation(ctx, locationID)
		if err != nil {
			if !isLocationFailure(err) {
				summary.FinishedAt = b.now()
				return summary, err
			}
			logger.Warn("location refresh failed", "location_id", locationID, "error", err)
			summary.Failures = append(summary.Failures, domain.LocationFailure{LocationID: locationID, Err: err})
			continue
		}

		summary.Processed++
		summary.Products += kept
		logger.Info("location refreshed", "location_id", locationID, "products", kept,
			"progress", fmt.Sprintf("%d/%d", summary.Processed, batchSize))

		if summary.Processed < batchSize && i < len(candidates)-1 {
			if err := b.sleep(ctx, pacingDelay); err != nil {
				summary.FinishedAt = b.now()
				return summary, err
			}
		}
	}

	summary.FinishedAt = b.now()
	logger.Info("batch finished",
		"processed", summary.Processed,
		"attempted", summary.Attempted,
		"failures", len(summary.Failures),
		"products", summary.Products,
		"remaining", summary.Stale-summary.Processed,
	)
	return summary, nil
}

// refreshLocation runs fetch, filter, persist and mark for one location and
// returns the number of products kept.
func (b *BatchScheduler) refreshLocation(ctx context.Context, locationID string) (int, error) {
	products, err := b.fetcher.Fetch(ctx, locationID)
	if err != nil {
		if !errors.Is(err, domain.ErrFetchFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrFetchFailure, err)
		}
		return 0, err
	}

	kept := b.filter.Apply(products)
	if len(kept) == 0 {
		b.logger.Debug("no relevant products", "location_id", locationID, "fetched", len(products))
	}
	if err := b.sink.Append(ctx, kept); err != nil {
		return 0, fmt.Errorf("persist products for %s: %w", locationID, err)
	}

	if err := b.tracker.MarkRetrieved(ctx, locationID, b.now()); err != nil {
		return 0, err
	}
	return len(kept), nil
}

// isLocationFailure reports errors confined to a single location.
func isLocationFailure(err error) bool {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return false
	}
	return errors.Is(err, domain.ErrFetchFailure) || errors.Is(err, domain.ErrUnknownLocation)
}

func (b *BatchScheduler) publish(ctx context.Context, summary domain.BatchSummary) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.PublishDigest(ctx, buildDigestMessage(summary)); err != nil {
		b.logger.Warn("publish batch digest", "run_id", summary.RunID, "error", err)
	}
}

func buildDigestMessage(s domain.BatchSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch %s\n", s.RunID)
	fmt.Fprintf(&sb, "Processed: %d of %d attempted (%d stale)\n", s.Processed, s.Attempted, s.Stale)
	fmt.Fprintf(&sb, "Products saved: %d\n", s.Products)
	if len(s.Failures) == 0 {
		return sb.String()
	}
	sb.WriteString("Failures:\n")
	for _, f := range s.Failures {
		fmt.Fprintf(&sb, "- %s: %v\n", f.LocationID, f.Err)
	}
	return sb.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
