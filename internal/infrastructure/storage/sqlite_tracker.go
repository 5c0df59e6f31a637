package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"GroceryScanner/internal/domain"
	"GroceryScanner/internal/ports"
)

const trackingTable = "location_tracking"

const trackingSchema = `CREATE TABLE IF NOT EXISTS location_tracking (
	position            INTEGER NOT NULL,
	location_id         TEXT    NOT NULL,
	last_retrieved_date TEXT    NOT NULL DEFAULT '',
	successful_calls    INTEGER NOT NULL DEFAULT 0,
	needs_data          INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_location_tracking_position ON location_tracking(position);`

// SQLite caps bound variables per statement; five columns per row.
const sqliteInsertChunk = 500

// SQLiteTrackerStore keeps the tracking table in SQLite. SaveAll replaces the
// table inside one transaction.
type SQLiteTrackerStore struct {
	db *sql.DB
}

var _ ports.RecordStore = (*SQLiteTrackerStore)(nil)

// OpenSQLite opens a database file with WAL and a busy timeout applied.
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, domain.StoreError("mkdir sqlite dir", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.StoreError("open sqlite", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, domain.StoreError("apply pragma", err)
		}
	}
	return db, nil
}

// NewSQLiteTrackerStore applies the schema and returns the store.
func NewSQLiteTrackerStore(db *sql.DB) (*SQLiteTrackerStore, error) {
	if _, err := db.Exec(trackingSchema); err != nil {
		return nil, domain.StoreError("apply tracking schema", err)
	}
	return &SQLiteTrackerStore{db: db}, nil
}

// Load returns the table ordered by insertion position.
func (s *SQLiteTrackerStore) Load(ctx context.Context) ([]domain.LocationTrackingRecord, error) {
	query, args, err := sq.Select("location_id", "last_retrieved_date", "successful_calls", "needs_data").
		From(trackingTable).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build load query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("query tracker", err)
	}
	defer rows.Close()

	var records []domain.LocationTrackingRecord
	for rows.Next() {
		var rec domain.LocationTrackingRecord
		if err := rows.Scan(&rec.LocationID, &rec.LastRetrievedDate, &rec.SuccessfulCalls, &rec.NeedsData); err != nil {
			return nil, domain.StoreError("scan tracker row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("iterate tracker rows", err)
	}
	return records, nil
}

// SaveAll replaces every row in a single transaction.
func (s *SQLiteTrackerStore) SaveAll(ctx context.Context, records []domain.LocationTrackingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("begin tracker tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+trackingTable); err != nil {
		return domain.StoreError("clear tracker", err)
	}

	for start := 0; start < len(records); start += sqliteInsertChunk {
		end := min(start+sqliteInsertChunk, len(records))

		insert := sq.Insert(trackingTable).
			Columns("position", "location_id", "last_retrieved_date", "successful_calls", "needs_data")
		for i := start; i < end; i++ {
			rec := records[i]
			insert = insert.Values(i, rec.LocationID, rec.LastRetrievedDate, rec.SuccessfulCalls, rec.NeedsData)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return domain.StoreError("insert tracker rows", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("commit tracker", err)
	}
	return nil
}

// InitializeFromLocations seeds the table when it has no rows.
func (s *SQLiteTrackerStore) InitializeFromLocations(ctx context.Context, locationIDs []string) error {
	query, args, err := sq.Select("COUNT(*)").From(trackingTable).ToSql()
	if err != nil {
		return fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return domain.StoreError("count tracker rows", err)
	}
	if count > 0 {
		return nil
	}
	if len(locationIDs) == 0 {
		return fmt.Errorf("sqlite tracker: %w", domain.ErrMissingSeedData)
	}
	return s.SaveAll(ctx, seedRecords(locationIDs))
}
