package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"expensetracker/internal/core"
)

// HistoryListStore persists the export history as one list.
type HistoryListStore interface {
	LoadHistory(ctx context.Context) ([]core.ExportRecord, error)
	SaveHistory(ctx context.Context, items []core.ExportRecord) error
}

// ExportHistory keeps the newest export records, upserting by ID. It reads
// through to the store so entries written by other processes are visible.
type ExportHistory struct {
	store HistoryListStore
	limit int
	mu    sync.Mutex
}

func NewExportHistory(store HistoryListStore, limit int) *ExportHistory {
	if limit <= 0 {
		limit = 100
	}
	return &ExportHistory{store: store, limit: limit}
}

// RecordExport inserts rec at the front or replaces the entry with its ID.
func (h *ExportHistory) RecordExport(ctx context.Context, rec core.ExportRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	items, err := h.store.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if i := slices.IndexFunc(items, func(r core.ExportRecord) bool { return r.ID == rec.ID }); i >= 0 {
		items[i] = rec
	} else {
		items = append([]core.ExportRecord{rec}, items...)
	}
	if len(items) > h.limit {
		items = items[:h.limit]
	}
	if err := h.store.SaveHistory(ctx, items); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// List returns the history, newest first.
func (h *ExportHistory) List(ctx context.Context) ([]core.ExportRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store.LoadHistory(ctx)
}

func (h *ExportHistory) Get(ctx context.Context, id string) (core.ExportRecord, error) {
	items, err := h.List(ctx)
	if err != nil {
		return core.ExportRecord{}, err
	}
	for _, r := range items {
		if r.ID == id {
			return r, nil
		}
	}
	return core.ExportRecord{}, fmt.Errorf("export %s: %w", id, core.ErrNotFound)
}
