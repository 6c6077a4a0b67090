package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/export"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(nil)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg).WithComponent(log.ComponentApp)

	logger.Info("Starting expensetracker", "port", cfg.Port, "backend", cfg.DataBackend)

	ctx := context.Background()
	store := cli.InitStorage(ctx, logger, cfg)
	repo := storage.NewRepository(store.KV, logger)
	m := metrics.New()

	expenses, err := services.NewExpenseService(ctx, repo, logger, services.WithExpenseMetrics(m))
	if err != nil {
		logger.Error("Failed to load expenses", log.FieldError, err)
		os.Exit(1)
	}

	dests, err := cli.BuildDestinations(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize export destinations", log.FieldError, err)
		os.Exit(1)
	}

	history := services.NewExportHistory(repo, cfg.DefaultExportLimit)
	runner := worker.NewRunner(history,
		worker.WithConcurrency(cfg.ExportConcurrency),
		worker.WithLogger(logger),
		worker.WithMetrics(m))

	exportOpts := []services.ExportOption{services.WithExportMetrics(m)}
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, exports will run in-process", log.FieldError, err)
			amqpClient = nil
		} else {
			exportOpts = append(exportOpts, services.WithPublisher(amqpClient))
			logger.Info("AMQP client initialized, exports will run in export-worker")
		}
	}

	exports := services.NewExportService(expenses,
		export.New(export.WithQuoteAll(cfg.CSVQuoteAll)),
		dests, runner, history, logger, exportOpts...)
	backups := services.NewBackupProcessor(repo, exports, logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:  expenses,
		Exports:   exports,
		Schedules: backups,
		Ready:     store.Ping,
		Metrics:   m,
		Logger:    logger,
	}, apphttp.DefaultOptions())
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := runner.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Export tasks still running at shutdown", log.FieldError, err)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close storage", log.FieldError, err)
		}
	})

	// Without a broker there is no export-worker to run backups.
	if amqpClient == nil {
		go cli.RunEvery(runCtx, cfg.BackupInterval, func(ctx context.Context, now time.Time) {
			if _, err := backups.ProcessDue(ctx, now); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Backup run failed", log.FieldError, err)
			}
		})
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
}
