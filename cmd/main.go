// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ianibaeva/explore-with-me/internal/config"
	"github.com/ianibaeva/explore-with-me/internal/database"
	"github.com/ianibaeva/explore-with-me/internal/handler"
	"github.com/ianibaeva/explore-with-me/internal/logging"
	"github.com/ianibaeva/explore-with-me/internal/repository"
	"github.com/ianibaeva/explore-with-me/internal/repository/postgres"
	"github.com/ianibaeva/explore-with-me/internal/repository/sqlite"
	"github.com/ianibaeva/explore-with-me/internal/service"
	"github.com/ianibaeva/explore-with-me/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Metrics ────────────────────────────────────────────────────────
	provider, shutdownMetrics, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Warn("metrics shutdown", zap.Error(err))
		}
	}()
	metrics, err := telemetry.NewMetrics(provider)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// ── 2. Open the store ─────────────────────────────────────────────────
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	opts := []service.Option{service.WithLogger(log), service.WithMetrics(metrics)}
	h := handler.New(
		service.NewEventService(store, opts...),
		service.NewRequestService(store, opts...),
		service.NewUserService(store, opts...),
		log,
	)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      h.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.HTTP.Addr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		log.Info("opened sqlite store", zap.String("path", cfg.SQLitePath))
		return store, nil
	default:
		pool, err := database.NewPool(ctx, cfg.DB, log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := database.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("connected to postgres", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.DBName))
		return postgres.New(pool), nil
	}
}
