package main

import (
	"context"
	"errors"
	"os"
	"time"

	"caffeine/internal/amqp"
	"caffeine/internal/cli"
	"caffeine/internal/config"
	applog "caffeine/internal/log"
	"caffeine/internal/services"
	"caffeine/internal/sheets"
	gsheet "caffeine/internal/sheets/google"
	memjournal "caffeine/internal/sheets/memory"
	"caffeine/internal/timezone"
	"caffeine/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(applog.ComponentWorker)
	logger.Info("Starting caffeine-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	loc, err := timezone.ParseTimezone(cfg.DefaultTimezone)
	if err != nil {
		logger.Warn("Invalid default timezone, using UTC", "error", err)
	}
	if cfg.DefaultTimezone == "" {
		loc = time.Local
	}

	var journal sheets.Journal
	if cfg.GoogleSpreadsheetID != "" {
		j, err := gsheet.NewFromEnv(context.Background(), loc)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets journal", "error", err)
			os.Exit(1)
		}
		journal = j
		logger.Info("Google Sheets journal initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		journal = memjournal.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring entries to an in-memory journal")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, journal)
	sweepCfg := services.DefaultSyncSweeperConfig()
	sweepCfg.Interval = cfg.SyncInterval
	sweepCfg.BatchSize = cfg.SyncBatchSize
	sweeper := services.NewSyncSweeper(repo, amqpClient, sweepCfg)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := sweeper.Stop(ctx); err != nil {
			logger.Warn("Sync sweeper stop", "error", err)
		}
	})

	// Entries written while the worker was down are republished right away.
	if n, err := sweeper.SweepOnce(ctx); err != nil {
		logger.Error("Startup sync sweep failed", "error", err)
	} else if n > 0 {
		logger.Info("Startup sync sweep republished entries", "count", n)
	}
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("Failed to start sync sweeper", "error", err)
	}

	go func() {
		if err := amqpClient.Consume(ctx, syncWorker.Handle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"sync_interval", cfg.SyncInterval,
		"batch_size", cfg.SyncBatchSize)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
