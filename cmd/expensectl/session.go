package main

import (
	"context"
	"fmt"
	"os"

	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	"expensetracker/internal/destination"
	"expensetracker/internal/destination/memory"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	"expensetracker/internal/worker"
)

// session is the state one command runs against.
type session struct {
	expenses *services.ExpenseService
	exports  *services.ExportService
	close    func() error
}

type opener func(ctx context.Context) (*session, error)

// openConfigured opens the store named by the environment. Logs go to
// stderr; exports are written by the command itself, so only the in-memory
// destination is registered.
func openConfigured(ctx context.Context) (*session, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logCfg.Component = log.ComponentCLI
	logCfg.Output = os.Stderr
	logger := log.New(logCfg)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.DataBackend, err)
	}
	s, err := newSession(ctx, storage.NewRepository(res.KV, logger), logger,
		export.WithQuoteAll(cfg.CSVQuoteAll))
	if err != nil {
		_ = res.Cleanup()
		return nil, err
	}
	s.close = res.Cleanup
	return s, nil
}

func newSession(ctx context.Context, repo *storage.Repository, logger *log.Logger, opts ...export.Option) (*session, error) {
	expenses, err := services.NewExpenseService(ctx, repo, logger)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	history := services.NewExportHistory(repo, 0)
	exports := services.NewExportService(expenses, export.New(opts...),
		destination.NewSet(memory.Name, memory.New()),
		worker.NewRunner(history, worker.WithLogger(logger)),
		history, logger)
	return &session{
		expenses: expenses,
		exports:  exports,
		close:    func() error { return nil },
	}, nil
}
