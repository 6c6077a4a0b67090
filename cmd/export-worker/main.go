package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/export"
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
	logger = cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	if !cfg.AMQPEnabled() {
		logger.Error("export-worker requires AMQP_URL")
		os.Exit(1)
	}
	logger.Info("Starting export-worker", "queue", cfg.AMQPQueue, "concurrency", cfg.ExportConcurrency)

	ctx := context.Background()
	store := cli.InitStorage(ctx, logger, cfg)
	defer store.Cleanup()
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

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	history := services.NewExportHistory(repo, cfg.DefaultExportLimit)
	runner := worker.NewRunner(history,
		worker.WithConcurrency(cfg.ExportConcurrency),
		worker.WithLogger(logger),
		worker.WithMetrics(m))

	// The server owns writes, so every export reloads the collection first.
	exports := services.NewExportService(expenses,
		export.New(export.WithQuoteAll(cfg.CSVQuoteAll)),
		dests, runner, history, logger,
		services.WithFreshReads(),
		services.WithExportMetrics(m))
	backups := services.NewBackupProcessor(repo, exports, logger)
	exportWorker := worker.NewExportWorker(exports, logger)

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := runner.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Export tasks still running at shutdown", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return client.ConsumeExportRequests(gctx, exportWorker.HandleExportRequest)
	})
	g.Go(func() error {
		cli.RunEvery(gctx, cfg.BackupInterval, func(ctx context.Context, now time.Time) {
			n, err := backups.ProcessDue(ctx, now)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Backup run failed", log.FieldError, err)
				return
			}
			if n > 0 {
				logger.Info("Backups completed", "count", n)
			}
		})
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_ = runner.Shutdown(shutdownCtx)
		cancel()
		os.Exit(1)
	}
	cli.WaitForShutdown(runCtx, done)
	logger.Info("Worker stopped")
}
