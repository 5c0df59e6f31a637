package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"GroceryScanner/internal/config"
	"GroceryScanner/internal/domain"
	"GroceryScanner/internal/filter"
	"GroceryScanner/internal/infrastructure/kroger"
	"GroceryScanner/internal/infrastructure/scheduler"
	"GroceryScanner/internal/infrastructure/storage"
	"GroceryScanner/internal/infrastructure/telegram"
	"GroceryScanner/internal/logging"
	"GroceryScanner/internal/ports"
	"GroceryScanner/internal/tracker"
	"GroceryScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	batch  *usecase.BatchScheduler

	sqlite *sql.DB
	pool   *pgxpool.Pool
}

// New builds the application: stores, sinks, fetcher, tracker and the batch use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := a.recordStore()
	if err != nil {
		a.Close()
		return nil, err
	}

	sink, err := a.productSink(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Kroger.Timeout}
	tokens := kroger.NewTokenCache(cfg.Kroger.TokenURL, cfg.Kroger.ClientID, cfg.Kroger.ClientSecret, cfg.Kroger.Scope, httpClient)
	fetcher := kroger.NewClient(kroger.Config{
		ProductsURL: cfg.Kroger.ProductsURL,
		SearchTerms: cfg.Kroger.SearchTerms,
		Limit:       cfg.Kroger.Limit,
		MaxPages:    cfg.Kroger.MaxPages,
		PageDelay:   cfg.Kroger.PageDelay,
	}, tokens, httpClient, logging.Component(baseLogger, "kroger"))

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.Enabled() {
		notifier = telegram.NewNotifier(tg.APIBase, tg.BotToken, tg.ChatID, nil)
	}

	loc := cfg.Scheduler.Location()
	a.batch = usecase.NewBatchScheduler(usecase.BatchDeps{
		Tracker:   tracker.New(store, cfg.Batch.StalenessDays, logging.Component(baseLogger, "tracker")),
		Fetcher:   fetcher,
		Sink:      sink,
		Filter:    filter.Policy{Categories: cfg.Filter.Categories, Keywords: cfg.Filter.Keywords},
		Locations: storage.NewCSVLocationSource(cfg.Storage.Path(cfg.Storage.LocationsFile)),
		Locker:    storage.NewFileLock(cfg.Storage.Path(cfg.Storage.LockFile), cfg.Storage.LockTTL),
		Notifier:  notifier,
		Logger:    logging.Component(baseLogger, "batch"),
		Clock:     func() time.Time { return time.Now().In(loc) },
	})

	return a, nil
}

func (a *Application) recordStore() (ports.RecordStore, error) {
	switch a.cfg.Storage.TrackerBackend {
	case "", config.BackendCSV:
		return storage.NewCSVTrackerStore(a.cfg.Storage.Path(a.cfg.Storage.TrackerFile)), nil
	case config.BackendSQLite:
		db, err := storage.OpenSQLite(a.cfg.Storage.Path(a.cfg.Storage.TrackerDB))
		if err != nil {
			return nil, err
		}
		a.sqlite = db
		return storage.NewSQLiteTrackerStore(db)
	default:
		return nil, fmt.Errorf("unknown tracker backend %q", a.cfg.Storage.TrackerBackend)
	}
}

func (a *Application) productSink(ctx context.Context) (ports.ProductSink, error) {
	csvSink := storage.NewCSVProductSink(a.cfg.Storage.Path(a.cfg.Storage.ProductsFile))
	if a.cfg.Postgres.DSN == "" {
		return csvSink, nil
	}

	pool, err := storage.NewPostgresPool(ctx, a.cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	a.pool = pool

	pg := storage.NewPostgresProductSink(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	a.logger.Info("mirroring products to postgres")
	return mirroredSink(csvSink, pg), nil
}

// mirroredSink writes the transactional mirror first so a mirror failure
// leaves the append-only CSV untouched.
func mirroredSink(primary, mirror ports.ProductSink) storage.MultiSink {
	return storage.MultiSink{mirror, primary}
}

// Run performs a single sweep: lock, seed, one batch, unlock, notify.
func (a *Application) Run(ctx context.Context) (domain.BatchSummary, error) {
	return a.batch.Sweep(ctx, a.cfg.Batch.Size, a.cfg.Batch.PacingDelay)
}

// RunDaemon runs sweeps on the configured cron schedule until ctx is done.
func (a *Application) RunDaemon(ctx context.Context) error {
	spec := fmt.Sprintf("CRON_TZ=%s %s", a.cfg.Scheduler.Location(), a.cfg.Scheduler.CronExpression)
	driver := scheduler.NewCronScheduler(spec, a.cfg.Scheduler.RunOnStart)
	sched := usecase.NewScheduler(driver, a.batch, a.cfg.Batch.Size, a.cfg.Batch.PacingDelay, logging.Component(a.logger, "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if next, err := driver.Next(time.Now()); err == nil {
		a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "next_run", next)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("stop scheduler: %w", err)
		}
		a.logger.Warn("sweep still running at shutdown deadline")
	}
	a.logger.Info("scheduler stopped")
	return nil
}

// Close releases database handles.
func (a *Application) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			a.logger.Warn("close sqlite", "error", err)
		}
	}
}
