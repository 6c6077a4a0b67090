// Package services owns the expense collection and orchestrates exports
// and scheduled backups on top of it.
package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/aggregator"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/metrics"
)

// ExpenseStore persists the collection and the category registry.
type ExpenseStore interface {
	LoadExpenses(ctx context.Context) ([]core.Expense, error)
	SaveExpenses(ctx context.Context, expenses []core.Expense) error
	ClearExpenses(ctx context.Context) error
	LoadCategories(ctx context.Context) ([]core.Category, error)
	SaveCategories(ctx context.Context, categories []core.Category) error
}

type ExpenseOption func(*ExpenseService)

func WithExpenseClock(now func() time.Time) ExpenseOption {
	return func(s *ExpenseService) { s.now = now }
}

func WithIDGenerator(newID func() string) ExpenseOption {
	return func(s *ExpenseService) { s.newID = newID }
}

func WithExpenseMetrics(m *metrics.Metrics) ExpenseOption {
	return func(s *ExpenseService) { s.metrics = m }
}

// ExpenseService holds the authoritative collection in memory and rewrites
// the persisted copy on every change. Readers get copies.
type ExpenseService struct {
	store   ExpenseStore
	logger  *log.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	mu       sync.RWMutex
	expenses []core.Expense
	registry *core.Registry
	revision uint64
}

// NewExpenseService loads the collection and the registry. Malformed stored
// data has already been recovered by the store; only backend failures are
// returned.
func NewExpenseService(ctx context.Context, store ExpenseStore, logger *log.Logger, opts ...ExpenseOption) (*ExpenseService, error) {
	if logger == nil {
		logger = log.Discard()
	}
	s := &ExpenseService{
		store:  store,
		logger: logger.WithComponent(log.ComponentExpense),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory state with the persisted one.
func (s *ExpenseService) Reload(ctx context.Context) error {
	expenses, err := s.store.LoadExpenses(ctx)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	cats, err := s.store.LoadCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = expenses
	s.registry = core.NewRegistry(cats...)
	s.revision++
	s.metrics.SetExpenseCount(len(expenses))

	s.logger.InfoContext(ctx, "Loaded expenses",
		log.FieldRecords, len(expenses),
		"categories", s.registry.Len())
	return nil
}

// Registry returns the live category registry.
func (s *ExpenseService) Registry() *core.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// Revision changes whenever the collection or the registry changes.
func (s *ExpenseService) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// All returns the collection in stored order.
func (s *ExpenseService) All() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.expenses)
}

func (s *ExpenseService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expenses)
}

// List filters the collection and orders it newest first.
func (s *ExpenseService) List(criteria aggregator.Criteria) []core.Expense {
	records := s.All()
	if !criteria.IsEmpty() {
		records = aggregator.Filter(records, criteria)
	}
	return aggregator.SortByDateDesc(records)
}

func (s *ExpenseService) Get(id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	return s.expenses[i], nil
}

// Create validates the form and appends a new expense with a fresh ID.
func (s *ExpenseService) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := in.Parse(s.registry)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = s.newID()
	for s.indexOf(e.ID) >= 0 {
		e.ID = s.newID()
	}

	next := append(slices.Clone(s.expenses), e)
	if err := s.commit(ctx, next); err != nil {
		return core.Expense{}, err
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.NewFields().WithOperation(log.OpCreate).WithExpense(e.ID, e.Amount.Cents, string(e.Category)).ToSlice()...)
	return e, nil
}

// Update replaces every field but the ID.
func (s *ExpenseService) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	e, err := in.Parse(s.registry)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id

	next := slices.Clone(s.expenses)
	next[i] = e
	if err := s.commit(ctx, next); err != nil {
		return core.Expense{}, err
	}

	s.logger.InfoContext(ctx, "Expense updated",
		log.NewFields().WithOperation(log.OpUpdate).WithExpense(e.ID, e.Amount.Cents, string(e.Category)).ToSlice()...)
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	next := slices.Delete(slices.Clone(s.expenses), i, i+1)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Expense deleted", log.FieldExpenseID, id)
	return nil
}

// Clear removes every expense. Categories are kept.
func (s *ExpenseService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ClearExpenses(ctx); err != nil {
		return err
	}
	n := len(s.expenses)
	s.expenses = []core.Expense{}
	s.revision++
	s.metrics.SetExpenseCount(0)

	s.logger.InfoContext(ctx, "Expenses cleared", "count", n)
	return nil
}

// commit persists next and only then makes it current. Callers hold mu.
func (s *ExpenseService) commit(ctx context.Context, next []core.Expense) error {
	if err := s.store.SaveExpenses(ctx, next); err != nil {
		return fmt.Errorf("save expenses: %w", err)
	}
	s.expenses = next
	s.revision++
	s.metrics.SetExpenseCount(len(next))
	return nil
}

func (s *ExpenseService) indexOf(id string) int {
	return slices.IndexFunc(s.expenses, func(e core.Expense) bool { return e.ID == id })
}

// Summary computes statistics for the month containing now.
func (s *ExpenseService) Summary(now time.Time) core.SummaryStatistics {
	reg := s.Registry()
	return aggregator.ComputeSummary(s.All(), reg.List(), now)
}

func (s *ExpenseService) Insights(now time.Time) core.Insights {
	return aggregator.Insights(s.All(), now)
}

func (s *ExpenseService) CategorySeries() []core.CategoryAmount {
	return aggregator.CategorySeries(s.All())
}

func (s *ExpenseService) MonthlySeries() []core.MonthAmount {
	return aggregator.MonthlySeries(s.All())
}

// Now is the service clock
func (s *ExpenseService) Now() time.Time {
	return s.now()
}

func (s *ExpenseService) Categories() []core.Category {
	return s.Registry().List()
}

// AddCategory appends a label to the registry and persists it.
func (s *ExpenseService) AddCategory(ctx context.Context, label string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := core.Category(strings.TrimSpace(label))
	switch {
	case c == "":
		return "", core.ErrEmptyCategory
	case c == core.AllCategories || s.registry.Has(c):
		return "", core.ErrDuplicateCategory
	}

	if err := s.store.SaveCategories(ctx, append(s.registry.List(), c)); err != nil {
		return "", fmt.Errorf("save categories: %w", err)
	}
	if _, err := s.registry.Add(string(c)); err != nil {
		return "", err
	}
	s.revision++
	s.logger.InfoContext(ctx, "Category added", log.FieldCategory, c)
	return c, nil
}

// RemoveCategory drops a label from the registry. Expenses keep it.
func (s *ExpenseService) RemoveCategory(ctx context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := core.Category(strings.TrimSpace(label))
	cats := s.registry.List()
	i := slices.Index(cats, c)
	if i < 0 {
		return fmt.Errorf("category %q: %w", c, core.ErrUnknownCategory)
	}

	if err := s.store.SaveCategories(ctx, slices.Delete(cats, i, i+1)); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	if err := s.registry.Remove(string(c)); err != nil {
		return err
	}
	s.revision++
	s.logger.InfoContext(ctx, "Category removed", log.FieldCategory, c)
	return nil
}
