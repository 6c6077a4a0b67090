package cli

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"expensetracker/internal/config"
	"expensetracker/internal/log"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	if logger == nil {
		t.Fatal("SetupLogger() returned nil")
	}
	if !logger.Enabled(context.Background(), -4) {
		t.Error("debug level should be enabled")
	}
}

func TestBuildDestinations(t *testing.T) {
	cfg := &config.Config{
		ExportDir:         filepath.Join(t.TempDir(), "exports"),
		ExportDestination: "local",
	}
	set, err := BuildDestinations(context.Background(), log.Discard(), cfg)
	if err != nil {
		t.Fatalf("BuildDestinations() error = %v", err)
	}
	if set.Default() != "local" {
		t.Errorf("Default() = %q, want local", set.Default())
	}
	names := set.Names()
	if len(names) != 2 || names[0] != "local" || names[1] != "memory" {
		t.Errorf("Names() = %v, want [local memory]", names)
	}
}

func TestBuildDestinationsSheetsRequired(t *testing.T) {
	cfg := &config.Config{
		ExportDir:           t.TempDir(),
		ExportDestination:   "sheets",
		GoogleSpreadsheetID: "sheet-id",
		GoogleSheetName:     "Expenses",
	}
	if _, err := BuildDestinations(context.Background(), log.Discard(), cfg); err == nil {
		t.Error("BuildDestinations() without credentials error = nil, want error")
	}
}

func TestRunEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunEvery(ctx, 5*time.Millisecond, func(context.Context, time.Time) {
			if calls.Add(1) == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunEvery did not stop after cancel")
	}
	if calls.Load() < 3 {
		t.Errorf("calls = %d, want at least 3", calls.Load())
	}
}
