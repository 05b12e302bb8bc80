package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"critterbot/internal/api"
	"critterbot/internal/bot"
	"critterbot/internal/catalog"
	"critterbot/internal/config"
	"critterbot/internal/db"
	"critterbot/internal/player"
	"critterbot/internal/storage"
	"critterbot/internal/syncq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBotFromEnv()
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

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("catalog load failed", "err", err)
		os.Exit(1)
	}

	queue := syncq.New()
	daily := player.NewDailyService(store, cat, queue, player.DailyConfig{
		Growth:    cfg.RarityGrowth,
		Unlimited: cfg.UnlimitedDailies,
	}, logger)
	players := player.NewService(store, queue, logger)

	b, err := bot.New(bot.Deps{
		Cfg:     cfg,
		Log:     logger,
		Gateway: store,
		Ledger:  store,
		Catalog: cat,
		Queue:   queue,
		Daily:   daily,
		Players: players,
	})
	if err != nil {
		logger.Error("bot init failed", "err", err)
		os.Exit(1)
	}

	server := api.New(cfg, logger, store, cat, store)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("market api listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	logger.Info("bot starting")
	if err := b.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("bot failed", "err", err)
		os.Exit(1)
	}
}
