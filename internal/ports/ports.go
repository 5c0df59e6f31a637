package ports

import (
	"context"
	"time"

	"GroceryScanner/internal/domain"
)

// RecordStore persists the location tracking table.
// Implementations assume a single writer; callers serialize runs with a Locker.
type RecordStore interface {
	// Load returns all records in store order. A missing table yields no records.
	Load(ctx context.Context) ([]domain.LocationTrackingRecord, error)
	// SaveAll replaces the whole table; readers never observe a partial write.
	SaveAll(ctx context.Context, records []domain.LocationTrackingRecord) error
	// InitializeFromLocations seeds the table when it does not exist yet.
	InitializeFromLocations(ctx context.Context, locationIDs []string) error
}

// ProductFetcher retrieves raw product listings for a location.
type ProductFetcher interface {
	Fetch(ctx context.Context, locationID string) ([]domain.ProductRecord, error)
}

// ProductSink appends filtered products to durable storage.
type ProductSink interface {
	Append(ctx context.Context, records []domain.ProductRecord) error
}

// LocationSource lists the known store locations.
type LocationSource interface {
	LocationIDs(ctx context.Context) ([]string, error)
}

// Locker guards the tracking table against concurrent runs.
type Locker interface {
	Acquire() error
	Release() error
}

// Notifier streams batch digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when batches execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
