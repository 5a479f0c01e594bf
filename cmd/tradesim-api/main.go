package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradesim/internal/api"
	"tradesim/internal/auth"
	"tradesim/internal/config"
	"tradesim/internal/game"
	"tradesim/internal/ledger"
	"tradesim/internal/persistence"
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

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Error("open persistence", "err", err)
		os.Exit(1)
	}
	defer backend.Close()

	state, err := restoreState(ctx, backend, logger)
	if err != nil {
		logger.Error("restore snapshot", "err", err)
		os.Exit(1)
	}

	gameSvc := game.NewService(state, logger)
	if cfg.SeedTeams {
		if err := gameSvc.Seed(game.SeedConfig{
			AdminName:     cfg.AdminName,
			AdminUsername: cfg.AdminUsername,
			AdminPassword: cfg.AdminPassword,
		}); err != nil {
			logger.Error("seed teams failed", "err", err)
			os.Exit(1)
		}
	}

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("token manager init failed", "err", err)
		os.Exit(1)
	}

	go autosave(ctx, gameSvc, backend, cfg.SnapshotEvery, logger)

	server := api.New(logger, tokens, gameSvc)
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

	logger.Info("tradesim api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	saveSnapshot(saveCtx, gameSvc, backend, logger)
}

func openBackend(ctx context.Context, cfg config.APIConfig) (persistence.Backend, error) {
	if cfg.DatabaseURL != "" {
		return persistence.OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return persistence.OpenSQLite(cfg.SQLitePath)
}

func restoreState(ctx context.Context, backend persistence.Backend, logger *slog.Logger) (*ledger.State, error) {
	raw, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		logger.Info("no snapshot found, starting fresh")
		return ledger.NewState(), nil
	}
	state, err := ledger.Decode(raw)
	if err != nil {
		return nil, err
	}
	logger.Info("snapshot restored", "teams", len(state.Teams), "status", state.Status)
	return state, nil
}

func autosave(ctx context.Context, svc *game.Service, backend persistence.Backend, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saveSnapshot(ctx, svc, backend, logger)
		}
	}
}

func saveSnapshot(ctx context.Context, svc *game.Service, backend persistence.Backend, logger *slog.Logger) {
	raw, err := svc.EncodeState()
	if err != nil {
		logger.Error("encode snapshot", "err", err)
		return
	}
	if err := backend.Save(ctx, raw); err != nil {
		logger.Error("save snapshot", "err", err)
	}
}
