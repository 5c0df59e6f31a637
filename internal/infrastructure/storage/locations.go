package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"GroceryScanner/internal/domain"
	"GroceryScanner/internal/ports"
)

// CSVLocationSource reads the master location list.
type CSVLocationSource struct {
	path string
}

var _ ports.LocationSource = (*CSVLocationSource)(nil)

// NewCSVLocationSource points at the master list file.
func NewCSVLocationSource(path string) *CSVLocationSource {
	return &CSVLocationSource{path: path}
}

// LocationIDs returns unique ids in file order. A missing file yields none.
func (s *CSVLocationSource) LocationIDs(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreError("open locations", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreError("read locations header", err)
	}

	col, ok := headerIndex(header)[strings.ToLower(colLocationID)]
	if !ok {
		return nil, fmt.Errorf("locations %s: missing %q column: %w", s.path, colLocationID, domain.ErrMissingSeedData)
	}

	seen := map[string]struct{}{}
	var ids []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.StoreError("read locations", err)
		}

		id := strings.TrimSpace(field(row, col))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
