package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"GroceryScanner/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteTrackerStore {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteTrackerStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestSQLiteTrackerStoreKeepsOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestSQLiteStore(t)
	want := []domain.LocationTrackingRecord{
		{LocationID: "zeta", NeedsData: true},
		{LocationID: "alpha", LastRetrievedDate: "2025-01-01", SuccessfulCalls: 4},
		{LocationID: "zeta", LastRetrievedDate: "2025-01-05", SuccessfulCalls: 1},
	}

	if err := store.SaveAll(ctx, want); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	if err := store.SaveAll(ctx, want[:1]); err != nil {
		t.Fatalf("second SaveAll: %v", err)
	}
	got, _ = store.Load(ctx)
	if len(got) != 1 {
		t.Fatalf("SaveAll must replace the table, got %d rows", len(got))
	}
}

func TestSQLiteTrackerStoreLargeSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestSQLiteStore(t)
	records := make([]domain.LocationTrackingRecord, 1234)
	for i := range records {
		records[i] = domain.NewLocationTrackingRecord(fmt.Sprintf("loc-%04d", i))
	}
	if err := store.SaveAll(ctx, records); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("expected %d rows, got %d", len(records), len(got))
	}
}

func TestSQLiteTrackerStoreInitialize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if err := store.InitializeFromLocations(ctx, nil); !errors.Is(err, domain.ErrMissingSeedData) {
		t.Fatalf("expected ErrMissingSeedData, got %v", err)
	}
	if err := store.InitializeFromLocations(ctx, []string{"001", "002", "003"}); err != nil {
		t.Fatalf("InitializeFromLocations: %v", err)
	}
	if err := store.InitializeFromLocations(ctx, []string{"004"}); err != nil {
		t.Fatalf("second InitializeFromLocations: %v", err)
	}

	got, _ := store.Load(ctx)
	if len(got) != 3 || got[0].LocationID != "001" || got[2].LocationID != "003" {
		t.Fatalf("unexpected seeded rows: %+v", got)
	}
	if !got[1].NeedsData {
		t.Fatalf("seeded rows must need data: %+v", got[1])
	}
}
