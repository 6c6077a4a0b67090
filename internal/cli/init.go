// Package cli provides common initialization shared by the commands under
// cmd/: logging, .env loading, configuration, storage and destinations.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	"expensetracker/internal/destination"
	"expensetracker/internal/destination/google"
	"expensetracker/internal/destination/local"
	"expensetracker/internal/destination/memory"
	"expensetracker/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. A nil cfg reads the environment directly.
func SetupLogger(cfg *config.Config) *log.Logger {
	level, format := os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")
	if cfg != nil {
		level, format = cfg.LogLevel, cfg.LogFormat
	}
	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(level)
	if format != "" {
		logCfg.Format = format
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitStorage opens the configured KV backend or exits the process.
func InitStorage(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize storage", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// BuildDestinations registers every destination the configuration allows.
// Local and memory are always available; sheets only when configured.
func BuildDestinations(ctx context.Context, logger *log.Logger, cfg *config.Config) (*destination.Set, error) {
	dir, err := local.New(cfg.ExportDir)
	if err != nil {
		return nil, fmt.Errorf("local destination: %w", err)
	}
	dests := []destination.Destination{dir, memory.New()}

	if cfg.GoogleSpreadsheetID != "" {
		sheets, err := google.New(ctx, google.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			if cfg.ExportDestination == google.Name {
				return nil, fmt.Errorf("sheets destination: %w", err)
			}
			logger.Warn("Google Sheets destination unavailable", log.FieldError, err)
		} else {
			dests = append(dests, sheets)
		}
	}

	set := destination.NewSet(cfg.ExportDestination, dests...)
	logger.Info("Export destinations ready", "default", set.Default(), "available", set.Names())
	return set, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT or SIGTERM; done closes once
// cleanup has run or the timeout expires.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// RunEvery calls fn immediately and then on every tick until ctx ends.
func RunEvery(ctx context.Context, interval time.Duration, fn func(ctx context.Context, now time.Time)) {
	fn(ctx, time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fn(ctx, now)
		}
	}
}
