package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// Fixed keys of the persisted layout
const (
	KeyExpenses   = "expense_tracker_data"
	KeyCategories = "expense_tracker_categories"
	KeyHistory    = "expense_tracker_export_history"
	KeySchedules  = "expense_tracker_schedules"
)

// expenseRecord is the persisted shape of an expense.
type expenseRecord struct {
	ID          string        `json:"id"`
	Date        core.Date     `json:"date"`
	Amount      core.Money    `json:"amount"`
	Category    core.Category `json:"category"`
	Description string        `json:"description"`
}

// Repository maps the domain collections onto fixed KV keys. Every save
// rewrites the whole collection under its key.
type Repository struct {
	kv     KV
	logger *log.Logger
}

func NewRepository(kv KV, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.Discard()
	}
	return &Repository{kv: kv, logger: logger.WithComponent(log.ComponentStorage)}
}

// LoadExpenses returns the persisted collection. Malformed data yields an
// empty collection and is only logged; the error reports backend failures.
// Entries that cannot be decoded are skipped and duplicate IDs keep the
// first occurrence. Amounts are not re-validated.
func (r *Repository) LoadExpenses(ctx context.Context) ([]core.Expense, error) {
	raw, ok, err := r.kv.Get(ctx, KeyExpenses)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	if !ok {
		return []core.Expense{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		r.logger.ErrorContext(ctx, "Error parsing stored expenses", log.FieldKey, KeyExpenses, log.FieldError, err)
		return []core.Expense{}, nil
	}

	out := make([]core.Expense, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		var rec expenseRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			r.logger.WarnContext(ctx, "Skipping undecodable stored expense", "index", i, log.FieldError, err)
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			r.logger.WarnContext(ctx, "Skipping stored expense with duplicate id", log.FieldExpenseID, rec.ID)
			continue
		}
		seen[rec.ID] = struct{}{}

		e := core.Expense(rec)
		if err := e.Validate(); err != nil {
			r.logger.WarnContext(ctx, "Stored expense fails validation", log.FieldExpenseID, e.ID, log.FieldError, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// SaveExpenses replaces the persisted collection.
func (r *Repository) SaveExpenses(ctx context.Context, expenses []core.Expense) error {
	recs := make([]expenseRecord, len(expenses))
	for i, e := range expenses {
		recs[i] = expenseRecord(e)
	}
	return r.save(ctx, KeyExpenses, recs)
}

// ClearExpenses removes the persisted collection.
func (r *Repository) ClearExpenses(ctx context.Context) error {
	if err := r.kv.Remove(ctx, KeyExpenses); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	return nil
}

// LoadCategories returns the stored labels, or the defaults when nothing
// usable is stored.
func (r *Repository) LoadCategories(ctx context.Context) ([]core.Category, error) {
	raw, ok, err := r.kv.Get(ctx, KeyCategories)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if !ok {
		return core.DefaultCategories(), nil
	}
	var cats []core.Category
	if err := json.Unmarshal([]byte(raw), &cats); err != nil {
		r.logger.ErrorContext(ctx, "Error parsing stored categories", log.FieldKey, KeyCategories, log.FieldError, err)
		return core.DefaultCategories(), nil
	}
	if len(cats) == 0 {
		return core.DefaultCategories(), nil
	}
	return cats, nil
}

// SaveCategories replaces the stored labels.
func (r *Repository) SaveCategories(ctx context.Context, cats []core.Category) error {
	return r.save(ctx, KeyCategories, cats)
}

// LoadHistory returns the export history, newest first as saved.
func (r *Repository) LoadHistory(ctx context.Context) ([]core.ExportRecord, error) {
	return loadList[core.ExportRecord](ctx, r, KeyHistory)
}

func (r *Repository) SaveHistory(ctx context.Context, items []core.ExportRecord) error {
	return r.save(ctx, KeyHistory, items)
}

func (r *Repository) LoadSchedules(ctx context.Context) ([]core.BackupSchedule, error) {
	return loadList[core.BackupSchedule](ctx, r, KeySchedules)
}

func (r *Repository) SaveSchedules(ctx context.Context, items []core.BackupSchedule) error {
	return r.save(ctx, KeySchedules, items)
}

// loadList decodes the JSON array under key. Missing or malformed data
// yields an empty list.
func loadList[T any](ctx context.Context, r *Repository, key string) ([]T, error) {
	raw, ok, err := r.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		r.logger.ErrorContext(ctx, "Error parsing stored list", log.FieldKey, key, log.FieldError, err)
		return []T{}, nil
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.kv.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
