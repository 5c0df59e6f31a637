// Package tracker owns per-location freshness state on top of a RecordStore.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"GroceryScanner/internal/domain"
	"GroceryScanner/internal/freshness"
	"GroceryScanner/internal/ports"
)

// Tracker reads and rewrites the tracking table one whole-table cycle at a time.
type Tracker struct {
	store         ports.RecordStore
	thresholdDays int
	logger        *slog.Logger
}

// New wires a tracker; a non-positive threshold falls back to the default.
func New(store ports.RecordStore, thresholdDays int, logger *slog.Logger) *Tracker {
	if thresholdDays <= 0 {
		thresholdDays = freshness.DefaultThresholdDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: store, thresholdDays: thresholdDays, logger: logger}
}

// Initialize seeds the table from the master list unless it already exists.
func (t *Tracker) Initialize(ctx context.Context, locationIDs []string) error {
	if err := t.store.InitializeFromLocations(ctx, locationIDs); err != nil {
		return fmt.Errorf("initialize tracker: %w", err)
	}
	return nil
}

// RecomputeAll deduplicates the table and refreshes every NeedsData flag.
func (t *Tracker) RecomputeAll(ctx context.Context, now time.Time) ([]domain.LocationTrackingRecord, error) {
	records, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracker: %w", err)
	}

	deduped := Deduplicate(records)
	if dropped := len(records) - len(deduped); dropped > 0 {
		t.logger.Info("removed duplicate tracking rows", "count", dropped)
	}

	for i := range deduped {
		deduped[i].NeedsData = freshness.IsStale(deduped[i].LastRetrievedDate, t.thresholdDays, now)
	}

	if err := t.store.SaveAll(ctx, deduped); err != nil {
		return nil, fmt.Errorf("save tracker: %w", err)
	}

	t.logger.Debug("needs-data refreshed", "locations", len(deduped), "stale", countStale(deduped))
	return deduped, nil
}

// MarkRetrieved records a successful fetch for the location.
// It fails with domain.ErrUnknownLocation rather than inventing a row.
func (t *Tracker) MarkRetrieved(ctx context.Context, locationID string, now time.Time) error {
	records, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load tracker: %w", err)
	}

	matched := 0
	for i := range records {
		if records[i].LocationID != locationID {
			continue
		}
		records[i].MarkRetrieved(now)
		matched++
	}
	if matched == 0 {
		return &domain.UnknownLocationError{LocationID: locationID}
	}

	if err := t.store.SaveAll(ctx, records); err != nil {
		return fmt.Errorf("save tracker: %w", err)
	}

	t.logger.Debug("tracker updated", "location_id", locationID)
	return nil
}

// SelectStale returns ids flagged NeedsData in store order.
// Callers run RecomputeAll first; the flag is only a cache.
func (t *Tracker) SelectStale(ctx context.Context) ([]string, error) {
	records, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracker: %w", err)
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.NeedsData {
			ids = append(ids, rec.LocationID)
		}
	}
	return ids, nil
}

// Deduplicate keeps the last row for each location id at its own position.
func Deduplicate(records []domain.LocationTrackingRecord) []domain.LocationTrackingRecord {
	last := make(map[string]int, len(records))
	for i, rec := range records {
		last[rec.LocationID] = i
	}

	out := make([]domain.LocationTrackingRecord, 0, len(last))
	for i, rec := range records {
		if last[rec.LocationID] == i {
			out = append(out, rec)
		}
	}
	return out
}

func countStale(records []domain.LocationTrackingRecord) int {
	n := 0
	for _, rec := range records {
		if rec.NeedsData {
			n++
		}
	}
	return n
}
