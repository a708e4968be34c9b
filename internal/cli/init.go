// Package cli provides common CLI initialization utilities shared by
// cmd/expensekeeper and cmd/recurring-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensekeeper/internal/amqp"
	"expensekeeper/internal/backend"
	"expensekeeper/internal/cache"
	"expensekeeper/internal/config"
	applog "expensekeeper/internal/log"
	"expensekeeper/internal/period"
	"expensekeeper/internal/stats"
	"expensekeeper/internal/storage"
)

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT.
// It runs before the configuration is validated, so an unknown level falls
// back to info with a warning.
func SetupLogger(component string) *applog.Logger {
	level, levelErr := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    os.Getenv("LOG_FORMAT"),
		Component: component,
		Writer:    os.Stdout,
	})
	applog.SetDefault(logger)
	if levelErr != nil {
		logger.Warn("Falling back to info logging", "error", levelErr)
	}
	return logger
}

// StatsCaches builds the report and trend caches and a manager that sweeps
// them. When the cache is disabled both caches are nil and nothing is swept.
func StatsCaches(cfg *config.Config) (*cache.Manager, cache.Cache[stats.Report], cache.Cache[[]stats.Point]) {
	manager := cache.NewManager()
	if !cfg.StatsCacheEnabled() {
		return manager, nil, nil
	}
	reports := cache.NewLRUCache[stats.Report](cfg.StatsCacheSize, cfg.StatsCacheTTL)
	trends := cache.NewLRUCache[[]stats.Point](cfg.StatsCacheSize, cfg.StatsCacheTTL)
	manager.Register(reports)
	manager.Register(trends)
	manager.StartCleanup(cfg.StatsCacheTTL)
	return manager, reports, trends
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitStore opens the configured backend.
// Returns the store and its cleanup or exits the process on failure.
func InitStore(ctx context.Context, logger *slog.Logger, cfg *config.Config) (storage.Store, backend.CleanupFunc) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", "error", err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res.Store, res.Cleanup
}

// Calendar builds the period calendar from the configured timezone and first day of week.
func Calendar(cfg *config.Config) (period.Calendar, error) {
	loc, err := cfg.Location()
	if err != nil {
		return period.Calendar{}, fmt.Errorf("load timezone: %w", err)
	}
	first, err := cfg.WeekStart()
	if err != nil {
		return period.Calendar{}, err
	}
	return period.NewCalendar(loc, first), nil
}

// InitAMQP connects to the broker when AMQP_URL is set. A connection failure
// is logged and the process continues without messaging.
func InitAMQP(logger *slog.Logger, cfg *config.Config, queue string) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured, running without messaging")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, queue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without messaging", "error", err)
		return nil
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", queue)
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
