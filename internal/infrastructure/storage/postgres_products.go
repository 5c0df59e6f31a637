package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"GroceryScanner/internal/domain"
	"GroceryScanner/internal/ports"
)

const productsSchema = `CREATE TABLE IF NOT EXISTS kroger_products (
	id             BIGSERIAL PRIMARY KEY,
	product_id     TEXT        NOT NULL,
	upc            TEXT        NOT NULL DEFAULT '',
	brand          TEXT        NOT NULL DEFAULT '',
	description    TEXT        NOT NULL DEFAULT '',
	category       TEXT        NOT NULL DEFAULT '',
	location_id    TEXT        NOT NULL,
	regular_price  NUMERIC(10,2),
	promo_price    NUMERIC(10,2),
	stock_level    TEXT        NOT NULL DEFAULT '',
	size           TEXT        NOT NULL DEFAULT '',
	sold_by        TEXT        NOT NULL DEFAULT '',
	date_retrieved TEXT        NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_kroger_products_location ON kroger_products(location_id, date_retrieved);`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresProductSink mirrors appended products into Postgres.
type PostgresProductSink struct {
	pool *pgxpool.Pool
}

var _ ports.ProductSink = (*PostgresProductSink)(nil)

// NewPostgresPool connects and pings with a short timeout.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, domain.StoreError("connect postgres", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, domain.StoreError("ping postgres", err)
	}
	return pool, nil
}

// NewPostgresProductSink wires a pool.
func NewPostgresProductSink(pool *pgxpool.Pool) *PostgresProductSink {
	return &PostgresProductSink{pool: pool}
}

// EnsureSchema creates the products table when missing.
func (s *PostgresProductSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, productsSchema); err != nil {
		return domain.StoreError("create products table", err)
	}
	return nil
}

// Append inserts all records in one transaction using a pgx batch.
func (s *PostgresProductSink) Append(ctx context.Context, records []domain.ProductRecord) error {
	if s.pool == nil || len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.StoreError("begin products tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, rec := range records {
		query, args, err := insertProductSQL(rec)
		if err != nil {
			return fmt.Errorf("build product insert: %w", err)
		}
		batch.Queue(query, args...)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return domain.StoreError(fmt.Sprintf("insert product %s", records[i].ProductID), err)
		}
	}
	if err := results.Close(); err != nil {
		return domain.StoreError("close products batch", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StoreError("commit products", err)
	}
	return nil
}

func insertProductSQL(rec domain.ProductRecord) (string, []any, error) {
	return psql.Insert("kroger_products").
		Columns("product_id", "upc", "brand", "description", "category", "location_id",
			"regular_price", "promo_price", "stock_level", "size", "sold_by", "date_retrieved").
		Values(rec.ProductID, rec.UPC, rec.Brand, rec.Description, rec.Category(), rec.LocationID,
			rec.RegularPrice, rec.PromoPrice, rec.StockLevel, rec.Size, rec.SoldBy, rec.DateRetrieved).
		ToSql()
}
