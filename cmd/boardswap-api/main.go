package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boardswap/internal/api"
	"boardswap/internal/auth"
	"boardswap/internal/config"
	"boardswap/internal/db"
	"boardswap/internal/market"
	"boardswap/internal/market/memstore"
	"boardswap/internal/market/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var store market.Store
	switch cfg.StoreDriver {
	case config.StoreMemory:
		store = memstore.New()
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg := postgres.New(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("schema init failed", "err", err)
			os.Exit(1)
		}
		store = pg
	}

	tokens := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL)
	marketSvc := market.NewService(store, logger)
	engine := market.NewEngine(store, store, logger)

	server := api.New(cfg, logger, tokens, marketSvc, engine)
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

	logger.Info("boardswap api listening", "addr", cfg.Addr, "store", cfg.StoreDriver)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
