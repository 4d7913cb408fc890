package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"splitledger/internal/amqp"
	"splitledger/internal/config"
	"splitledger/internal/export"
	"splitledger/internal/export/google"
	"splitledger/internal/export/memory"
	applog "splitledger/internal/log"
	"splitledger/internal/storage"
	"splitledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	applog.Setup()

	slog.Info("Starting splitledger-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sink export.RowWriter
	switch cfg.ExportSink {
	case "sheets":
		client, err := google.NewFromEnv(ctx)
		if err != nil {
			slog.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		sink = client
		slog.Info("Google Sheets sink initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		sink = memory.New()
		slog.Info("Memory sink initialized")
	}

	exportWorker := worker.NewExportWorker(repo, sink)

	// Consume until shutdown, reconnecting when the broker drops us.
	for {
		if err := consumeOnce(ctx, cfg, exportWorker); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			slog.Error("Event consumption failed, reconnecting",
				"error", err,
				"delay", cfg.ReconnectDelay)
		}

		select {
		case <-ctx.Done():
			slog.Info("Worker stopped gracefully")
			return
		case <-time.After(cfg.ReconnectDelay):
		}
	}

	slog.Info("Worker stopped gracefully")
}

func consumeOnce(ctx context.Context, cfg *config.Config, exportWorker *worker.ExportWorker) error {
	events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer events.Close()

	slog.Info("Consuming ledger events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return exportWorker.Run(ctx, events)
}
