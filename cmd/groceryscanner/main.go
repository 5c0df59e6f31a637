package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"GroceryScanner/internal/app"
	"GroceryScanner/internal/config"
	"GroceryScanner/internal/logging"
)

const envFileEnv = "GROCERY_SCANNER_ENV_FILE"

func main() {
	loadEnvFile()

	cfg := config.Load()

	batchSize := flag.Int("batch", cfg.Batch.Size, "maximum number of locations refreshed in one run")
	daemon := flag.Bool("daemon", cfg.Scheduler.Enabled, "run on the configured cron schedule instead of once")
	flag.Parse()

	if *batchSize <= 0 {
		log.Fatalf("-batch must be positive, got %d", *batchSize)
	}
	cfg.Batch.Size = *batchSize

	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if *daemon {
		if err := application.RunDaemon(ctx); err != nil {
			logger.Error("daemon stopped", "error", err)
			application.Close()
			os.Exit(1)
		}
		return
	}

	summary, err := application.Run(ctx)
	if err != nil {
		logger.Error("batch aborted", "error", err)
		application.Close()
		os.Exit(1)
	}
	logger.Info("batch complete",
		"run_id", summary.RunID,
		"processed", summary.Processed,
		"failures", len(summary.Failures),
		"remaining", summary.Stale-summary.Processed,
	)
}

// loadEnvFile reads KEY=VALUE credentials without overriding the real environment.
func loadEnvFile() {
	path := os.Getenv(envFileEnv)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("env: cannot load %s: %v", path, err)
	}
}
