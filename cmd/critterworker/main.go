package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"critterbot/internal/config"
	"critterbot/internal/db"
	"critterbot/internal/market"
	"critterbot/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := storage.New(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("CRIT_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if err := sweep(ctx, store, cfg.ListingTTL, logger); err != nil {
			logger.Error("sweep failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.SweepEvery)
	defer ticker.Stop()

	logger.Info("worker started", "sweep_every", cfg.SweepEvery.String(), "listing_ttl", cfg.ListingTTL.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := sweep(ctx, store, cfg.ListingTTL, logger); err != nil {
				logger.Error("sweep failed", "err", err)
				continue
			}
		}
	}
}

// sweep drops expired and fully-settled listings from the stored book.
func sweep(ctx context.Context, store *storage.Store, ttl time.Duration, logger *slog.Logger) error {
	snap, err := store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	book := market.NewBook(snap, ttl)
	removed := book.Sweep()
	if removed == 0 {
		logger.Info("sweep complete", "removed", 0)
		return nil
	}
	if err := store.SaveSnapshot(ctx, book.Snapshot()); err != nil {
		return err
	}
	logger.Info("sweep complete", "removed", removed)
	return nil
}
