package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"GroceryScanner/internal/domain"
)

func TestCSVLocationSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kroger_locations.csv")
	content := "Name, location id ,Zip\n" +
		"Store A,01400943,45202\n" +
		"Store B,  00700 ,45203\n" +
		"Store C,,45204\n" +
		"Store A again,01400943,45202\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ids, err := NewCSVLocationSource(path).LocationIDs(context.Background())
	if err != nil {
		t.Fatalf("LocationIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "01400943" || ids[1] != "00700" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestCSVLocationSourceMissingFile(t *testing.T) {
	t.Parallel()

	ids, err := NewCSVLocationSource(filepath.Join(t.TempDir(), "nope.csv")).LocationIDs(context.Background())
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected no ids and no error, got %v, %v", ids, err)
	}
}

func TestCSVLocationSourceMissingColumn(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "locations.csv")
	if err := os.WriteFile(path, []byte("Store,Zip\nA,1\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := NewCSVLocationSource(path).LocationIDs(context.Background())
	if !errors.Is(err, domain.ErrMissingSeedData) {
		t.Fatalf("expected ErrMissingSeedData, got %v", err)
	}
}
