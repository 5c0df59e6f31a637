package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"GroceryScanner/internal/domain"
)

func TestInsertProductSQL(t *testing.T) {
	t.Parallel()

	query, args, err := insertProductSQL(domain.ProductRecord{
		ProductID:  "1",
		Categories: []string{"Dairy", "Eggs"},
		LocationID: "01400943",
	})
	if err != nil {
		t.Fatalf("insertProductSQL: %v", err)
	}
	if !strings.HasPrefix(query, "INSERT INTO kroger_products") || !strings.Contains(query, "$12") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 12 || args[4] != "Dairy, Eggs" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestPostgresProductSinkAppend(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	pool, err := NewPostgresPool(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	sink := NewPostgresProductSink(pool)
	if err := sink.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	rec := domain.ProductRecord{
		ProductID:     "test-" + t.Name(),
		Description:   "Large Eggs",
		Categories:    []string{"Dairy"},
		LocationID:    "test-location",
		RegularPrice:  2.99,
		DateRetrieved: "2025-02-01",
	}
	if err := sink.Append(ctx, []domain.ProductRecord{rec}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	var count int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM kroger_products WHERE product_id = $1`, rec.ProductID).Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count < 1 {
		t.Fatalf("expected inserted row, got %d", count)
	}
	_, _ = pool.Exec(ctx, `DELETE FROM kroger_products WHERE product_id = $1`, rec.ProductID)
}
