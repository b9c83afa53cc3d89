package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"saldo/internal/amqp"
	"saldo/internal/cache"
	"saldo/internal/config"
	"saldo/internal/core"
	applog "saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/sheets"
	"saldo/internal/storage"
	"saldo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.Setup(cfg.LogLevel)

	logger.Info("Starting saldo-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	rng, err := core.ParseViewRange(cfg.DefaultViewRange)
	if err != nil {
		logger.Error("Invalid default view range", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	store := cache.NewLRUStore(cfg.CacheSize, cfg.CacheTTL)
	store.StartJanitor(cfg.CacheCleanupInterval)
	defer store.StopJanitor()

	overview := services.NewCachedOverview(services.NewOverviewService(repo, cfg.MaxPeriods), store)

	// Report export is optional; without a spreadsheet id the worker
	// only keeps the cache warm.
	var exporter *sheets.ReportExporter
	if cfg.SheetsSpreadsheetID != "" {
		exporter, err = sheets.NewReportExporterFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize report exporter", "error", err)
			os.Exit(1)
		}
		logger.Info("Report exporter initialized", "spreadsheet_id", cfg.SheetsSpreadsheetID)
	} else {
		logger.Info("Report export disabled - no SHEETS_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	overviewWorker := worker.NewOverviewWorker(repo, overview, exporter, rng, cfg.WarmConcurrency)

	logger.Info("Warming period overviews on startup...")
	if err := overviewWorker.WarmAll(ctx); err != nil {
		logger.Error("Startup warmup failed", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		if err := amqpClient.ConsumeJournalPosted(ctx, overviewWorker.HandleJournalPosted); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	ticker := time.NewTicker(cfg.WarmInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := overviewWorker.WarmAll(ctx); err != nil {
					logger.Error("Periodic warmup failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second) // drain in-flight handlers
	logger.Info("Worker shutdown complete")
}
