package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"GroceryScanner/internal/domain"
)

func TestCSVProductSinkAppends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "kroger_product_data.csv")
	sink := NewCSVProductSink(path)

	first := []domain.ProductRecord{{
		ProductID:     "0001",
		UPC:           "0001",
		Brand:         "Kroger",
		Description:   "Grade A Large Eggs",
		Categories:    []string{"Dairy", "Natural & Organic"},
		LocationID:    "01400943",
		RegularPrice:  3.49,
		PromoPrice:    0,
		StockLevel:    "HIGH",
		Size:          "12 ct",
		SoldBy:        "UNIT",
		DateRetrieved: "2025-02-01",
	}}
	second := []domain.ProductRecord{{ProductID: "0002", Description: "White Bread", LocationID: "01400943"}}

	if err := sink.Append(ctx, first); err != nil {
		t.Fatalf("first Append: %v", err)
	}
	if err := sink.Append(ctx, nil); err != nil {
		t.Fatalf("empty Append: %v", err)
	}
	if err := sink.Append(ctx, second); err != nil {
		t.Fatalf("second Append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open products: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read products: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Product ID" || rows[0][11] != "Date Retrieved" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][4] != "Dairy, Natural & Organic" || rows[1][6] != "3.49" || rows[1][7] != "0" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][0] != "0002" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestCSVProductSinkEmptyInputCreatesNothing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "products.csv")
	if err := NewCSVProductSink(path).Append(context.Background(), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file should not be created for empty input: %v", err)
	}
}

type failingSink struct{ calls int }

func (f *failingSink) Append(context.Context, []domain.ProductRecord) error {
	f.calls++
	return errors.New("boom")
}

func TestMultiSinkStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	first := &failingSink{}
	second := &failingSink{}
	err := MultiSink{first, second}.Append(context.Background(), []domain.ProductRecord{{ProductID: "1"}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if first.calls != 1 || second.calls != 0 {
		t.Fatalf("unexpected calls: first=%d second=%d", first.calls, second.calls)
	}
}
