package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"GroceryScanner/internal/domain"
	"GroceryScanner/internal/ports"
)

// Tracking table column names.
const (
	colLocationID      = "Location ID"
	colLastRetrieved   = "Last Retrieved Date"
	colSuccessfulCalls = "Successful Calls"
	colNeedsData       = "Needs Data"
)

var trackerHeader = []string{colLocationID, colLastRetrieved, colSuccessfulCalls, colNeedsData}

// CSVTrackerStore keeps the tracking table in a single CSV file that is
// rewritten as a whole on every save.
type CSVTrackerStore struct {
	path string
}

var _ ports.RecordStore = (*CSVTrackerStore)(nil)

// NewCSVTrackerStore points the store at a CSV file; the file may not exist yet.
func NewCSVTrackerStore(path string) *CSVTrackerStore {
	return &CSVTrackerStore{path: path}
}

// Path returns the backing file.
func (s *CSVTrackerStore) Path() string {
	return s.path
}

// Load reads the table, creating an empty one when the file is missing.
func (s *CSVTrackerStore) Load(ctx context.Context) ([]domain.LocationTrackingRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.SaveAll(ctx, nil); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreError("open tracker", err)
	}
	defer f.Close()

	records, err := readTracker(f)
	if err != nil {
		return nil, domain.StoreError("read tracker "+s.path, err)
	}
	return records, nil
}

// SaveAll writes the table to a temp file and renames it over the original.
func (s *CSVTrackerStore) SaveAll(ctx context.Context, records []domain.LocationTrackingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return domain.StoreError("mkdir tracker dir", err)
	}

	tmp := s.path + ".tmp"
	if err := writeTrackerFile(tmp, records); err != nil {
		os.Remove(tmp)
		return domain.StoreError("write tracker", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return domain.StoreError("rename tracker", err)
	}
	return nil
}

// InitializeFromLocations seeds one never-retrieved record per id when the
// table is missing or has no rows. An existing table is left untouched.
func (s *CSVTrackerStore) InitializeFromLocations(ctx context.Context, locationIDs []string) error {
	existing, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	if len(locationIDs) == 0 {
		return fmt.Errorf("tracker %s: %w", s.path, domain.ErrMissingSeedData)
	}
	return s.SaveAll(ctx, seedRecords(locationIDs))
}

func seedRecords(locationIDs []string) []domain.LocationTrackingRecord {
	records := make([]domain.LocationTrackingRecord, 0, len(locationIDs))
	for _, id := range locationIDs {
		records = append(records, domain.NewLocationTrackingRecord(id))
	}
	return records
}

func readTracker(r io.Reader) ([]domain.LocationTrackingRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := headerIndex(header)
	idCol, ok := idx[strings.ToLower(colLocationID)]
	if !ok {
		return nil, fmt.Errorf("missing %q column in header %v", colLocationID, header)
	}

	var records []domain.LocationTrackingRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		id := strings.TrimSpace(field(row, idCol))
		if id == "" {
			continue
		}

		rec := domain.LocationTrackingRecord{LocationID: id, NeedsData: true}
		if col, ok := idx[strings.ToLower(colLastRetrieved)]; ok {
			rec.LastRetrievedDate = strings.TrimSpace(field(row, col))
		}
		if col, ok := idx[strings.ToLower(colSuccessfulCalls)]; ok {
			rec.SuccessfulCalls = parseCount(field(row, col))
		}
		if col, ok := idx[strings.ToLower(colNeedsData)]; ok {
			if v, err := strconv.ParseBool(strings.TrimSpace(field(row, col))); err == nil {
				rec.NeedsData = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func writeTrackerFile(path string, records []domain.LocationTrackingRecord) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(trackerHeader); err != nil {
		f.Close()
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.LocationID,
			rec.LastRetrievedDate,
			strconv.Itoa(rec.SuccessfulCalls),
			strconv.FormatBool(rec.NeedsData),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// headerIndex maps lower-cased, trimmed column names to positions.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseCount accepts "3" as well as spreadsheet-style "3.0"; garbage reads as 0.
func parseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 0 {
		return int(f)
	}
	return 0
}
