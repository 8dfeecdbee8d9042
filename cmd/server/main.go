package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/nrin31266/stomphub/internal/adapter/httpserver"
	"github.com/nrin31266/stomphub/internal/adapter/metrics"
	"github.com/nrin31266/stomphub/internal/adapter/postgres"
	"github.com/nrin31266/stomphub/internal/broker"
	"github.com/nrin31266/stomphub/internal/platform/config"
	"github.com/nrin31266/stomphub/internal/platform/logging"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func runGracefulShutdown(srv *httpserver.Server, b *broker.Broker, stopSupervisor context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopSupervisor()
		b.Shutdown()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	registry := metrics.NewRegistry()
	brokerMetrics := metrics.NewBrokerMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	b := broker.New(clock, brokerMetrics)

	supervisorCtx, stopSupervisor := context.WithCancel(context.Background())
	defer stopSupervisor()
	supervisor := broker.NewSupervisor(b, clock, cfg.HeartbeatInterval, cfg.CleanupInterval)
	go supervisor.Run(supervisorCtx)

	userRepo := postgres.NewUserRepo(pool)

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
	}

	srv := httpserver.NewServer(cfg, userRepo, b, metrics.Handler(registry), httpMetrics, healthChecks)

	done := runGracefulShutdown(srv, b, stopSupervisor)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
