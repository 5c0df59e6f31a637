package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"GroceryScanner/internal/domain"
	"GroceryScanner/internal/ports"
)

// ProductHeader is the fixed header of the persisted product table.
var ProductHeader = []string{
	"Product ID", "UPC", "Brand", "Description", "Category", "Location ID",
	"Regular Price", "Promo Price", "Stock Level", "Size", "Sold By", "Date Retrieved",
}

// CSVProductSink appends product rows to a CSV file without rewriting prior rows.
type CSVProductSink struct {
	path string
}

var _ ports.ProductSink = (*CSVProductSink)(nil)

// NewCSVProductSink points at the product table file.
func NewCSVProductSink(path string) *CSVProductSink {
	return &CSVProductSink{path: path}
}

// Append writes rows, creating the file with its header when needed.
func (s *CSVProductSink) Append(ctx context.Context, records []domain.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.ensureHeader(); err != nil {
		return domain.StoreError("create product table", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.StoreError("open product table", err)
	}
	defer f.Close()

	bufw := bufio.NewWriter(f)
	w := csv.NewWriter(bufw)
	for _, rec := range records {
		if err := w.Write(productRow(rec)); err != nil {
			return domain.StoreError("append products", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domain.StoreError("append products", err)
	}
	if err := bufw.Flush(); err != nil {
		return domain.StoreError("append products", err)
	}
	if err := f.Sync(); err != nil {
		return domain.StoreError("sync products", err)
	}
	return nil
}

func (s *CSVProductSink) ensureHeader() error {
	fi, err := os.Stat(s.path)
	if err == nil && fi.Size() > 0 {
		return nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(ProductHeader); err != nil {
		f.Close()
		return err
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

func productRow(p domain.ProductRecord) []string {
	return []string{
		p.ProductID,
		p.UPC,
		p.Brand,
		p.Description,
		p.Category(),
		p.LocationID,
		formatPrice(p.RegularPrice),
		formatPrice(p.PromoPrice),
		p.StockLevel,
		p.Size,
		p.SoldBy,
		p.DateRetrieved,
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MultiSink appends to each sink in order and stops at the first failure.
type MultiSink []ports.ProductSink

var _ ports.ProductSink = MultiSink(nil)

// Append fans the records out to every configured sink.
func (m MultiSink) Append(ctx context.Context, records []domain.ProductRecord) error {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Append(ctx, records); err != nil {
			return err
		}
	}
	return nil
}
