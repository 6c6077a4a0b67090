package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"expensetracker/internal/aggregator"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

// failingStore wraps a repository and fails saves on demand.
type failingStore struct {
	*storage.Repository
	failSave bool
}

func (f *failingStore) SaveExpenses(ctx context.Context, e []core.Expense) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.Repository.SaveExpenses(ctx, e)
}

func (f *failingStore) SaveCategories(ctx context.Context, c []core.Category) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.Repository.SaveCategories(ctx, c)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestExpenseService(t *testing.T) (*ExpenseService, *failingStore) {
	t.Helper()
	store := &failingStore{Repository: storage.NewRepository(storage.NewMemoryKV(), nil)}
	svc, err := NewExpenseService(context.Background(), store, nil,
		WithIDGenerator(sequentialIDs()),
		WithExpenseClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("NewExpenseService() error = %v", err)
	}
	return svc, store
}

func input(date, amount, category, desc string) core.ExpenseInput {
	return core.ExpenseInput{Date: date, Amount: amount, Category: category, Description: desc}
}

func mustCreate(t *testing.T, svc *ExpenseService, in core.ExpenseInput) core.Expense {
	t.Helper()
	e, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create(%+v) error = %v", in, err)
	}
	return e
}

func TestNewExpenseService_LoadsDefaults(t *testing.T) {
	svc, _ := newTestExpenseService(t)

	if got := svc.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
	if got := len(svc.Categories()); got != len(core.DefaultCategories()) {
		t.Errorf("Categories() has %d entries, want defaults", got)
	}
}

func TestExpenseService_CreatePersists(t *testing.T) {
	svc, store := newTestExpenseService(t)
	ctx := context.Background()

	e := mustCreate(t, svc, input("2024-03-01", "12.50", "Food", "  Lunch  "))
	if e.ID != "id-1" {
		t.Errorf("ID = %q, want id-1", e.ID)
	}
	if e.Description != "Lunch" {
		t.Errorf("Description = %q, want trimmed", e.Description)
	}
	if e.Amount.Cents != 1250 {
		t.Errorf("Amount = %d cents, want 1250", e.Amount.Cents)
	}

	persisted, err := store.LoadExpenses(ctx)
	if err != nil {
		t.Fatalf("LoadExpenses() error = %v", err)
	}
	if len(persisted) != 1 || persisted[0].ID != "id-1" {
		t.Errorf("persisted = %+v, want the created expense", persisted)
	}
}

func TestExpenseService_CreateValidation(t *testing.T) {
	svc, _ := newTestExpenseService(t)

	_, err := svc.Create(context.Background(), input("", "0", "Nope", " "))
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Create() error = %v, want *core.ValidationError", err)
	}
	want := core.FieldErrors{
		core.FieldDate:        "Date is required",
		core.FieldAmount:      "Amount must be greater than 0",
		core.FieldCategory:    "Category is not recognized",
		core.FieldDescription: "Description is required",
	}
	for field, msg := range want {
		if verr.Fields[field] != msg {
			t.Errorf("Fields[%s] = %q, want %q", field, verr.Fields[field], msg)
		}
	}
	if svc.Len() != 0 {
		t.Error("invalid input must not be stored")
	}
}

func TestExpenseService_UpdateKeepsID(t *testing.T) {
	svc, _ := newTestExpenseService(t)
	ctx := context.Background()
	e := mustCreate(t, svc, input("2024-03-01", "10", "Food", "Lunch"))
	rev := svc.Revision()

	updated, err := svc.Update(ctx, e.ID, input("2024-03-02", "11", "Bills", "Power"))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID != e.ID || updated.Category != "Bills" {
		t.Errorf("Update() = %+v", updated)
	}
	if svc.Revision() == rev {
		t.Error("Revision() should change after update")
	}

	if _, err := svc.Update(ctx, "missing", input("2024-03-02", "11", "Bills", "Power")); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestExpenseService_DeleteAndClear(t *testing.T) {
	svc, store := newTestExpenseService(t)
	ctx := context.Background()
	a := mustCreate(t, svc, input("2024-03-01", "10", "Food", "A"))
	mustCreate(t, svc, input("2024-03-02", "20", "Food", "B"))

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete(twice) error = %v, want ErrNotFound", err)
	}

	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if svc.Len() != 0 {
		t.Errorf("Len() after Clear = %d", svc.Len())
	}
	stored, err := store.LoadExpenses(ctx)
	if err != nil {
		t.Fatalf("LoadExpenses() error = %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("stored after Clear = %d, want 0", len(stored))
	}
	if got := svc.List(aggregator.Criteria{}); len(got) != 0 {
		t.Errorf("List() after Clear = %d", len(got))
	}
}

func TestExpenseService_FailedSaveLeavesStateUntouched(t *testing.T) {
	svc, store := newTestExpenseService(t)
	ctx := context.Background()
	e := mustCreate(t, svc, input("2024-03-01", "10", "Food", "A"))

	store.failSave = true
	if _, err := svc.Create(ctx, input("2024-03-02", "20", "Food", "B")); err == nil {
		t.Fatal("Create() error = nil, want save failure")
	}
	if err := svc.Delete(ctx, e.ID); err == nil {
		t.Fatal("Delete() error = nil, want save failure")
	}
	if _, err := svc.AddCategory(ctx, "Travel"); err == nil {
		t.Fatal("AddCategory() error = nil, want save failure")
	}

	if svc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", svc.Len())
	}
	if svc.Registry().Has("Travel") {
		t.Error("registry changed despite failed save")
	}
}

func TestExpenseService_ListFiltersAndSorts(t *testing.T) {
	svc, _ := newTestExpenseService(t)
	mustCreate(t, svc, input("2024-03-01", "10", "Food", "Groceries"))
	mustCreate(t, svc, input("2024-03-05", "20", "Bills", "Power"))
	mustCreate(t, svc, input("2024-03-03", "30", "Food", "Dinner"))

	got := svc.List(aggregator.Criteria{Category: "Food"})
	if len(got) != 2 {
		t.Fatalf("List() returned %d, want 2", len(got))
	}
	if got[0].Description != "Dinner" || got[1].Description != "Groceries" {
		t.Errorf("List() order = %s, %s; want newest first", got[0].Description, got[1].Description)
	}
}

func TestExpenseService_Summary(t *testing.T) {
	svc, _ := newTestExpenseService(t)
	mustCreate(t, svc, input("2024-03-01", "10", "Food", "A"))
	mustCreate(t, svc, input("2024-02-10", "5", "Bills", "B"))

	s := svc.Summary(testNow)
	if s.TotalSpending.Cents != 1500 {
		t.Errorf("TotalSpending = %d, want 1500", s.TotalSpending.Cents)
	}
	if s.MonthlySpending.Cents != 1000 {
		t.Errorf("MonthlySpending = %d, want 1000", s.MonthlySpending.Cents)
	}
	if s.TopCategory == nil || s.TopCategory.Category != "Food" {
		t.Errorf("TopCategory = %+v, want Food", s.TopCategory)
	}
}

func TestExpenseService_Categories(t *testing.T) {
	svc, store := newTestExpenseService(t)
	ctx := context.Background()

	c, err := svc.AddCategory(ctx, " Travel ")
	if err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}
	if c != "Travel" {
		t.Errorf("AddCategory() = %q, want Travel", c)
	}
	if _, err := svc.AddCategory(ctx, "Travel"); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Errorf("AddCategory(dup) error = %v", err)
	}
	if _, err := svc.AddCategory(ctx, "All"); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Errorf("AddCategory(All) error = %v", err)
	}
	if _, err := svc.AddCategory(ctx, ""); !errors.Is(err, core.ErrEmptyCategory) {
		t.Errorf("AddCategory(empty) error = %v", err)
	}

	if err := svc.RemoveCategory(ctx, "Food"); err != nil {
		t.Fatalf("RemoveCategory() error = %v", err)
	}
	if err := svc.RemoveCategory(ctx, "Food"); !errors.Is(err, core.ErrUnknownCategory) {
		t.Errorf("RemoveCategory(twice) error = %v", err)
	}

	persisted, err := store.LoadCategories(ctx)
	if err != nil {
		t.Fatalf("LoadCategories() error = %v", err)
	}
	want := []core.Category{"Transportation", "Entertainment", "Shopping", "Bills", "Other", "Travel"}
	if fmt.Sprint(persisted) != fmt.Sprint(want) {
		t.Errorf("persisted categories = %v, want %v", persisted, want)
	}
}

func TestExpenseService_Reload(t *testing.T) {
	svc, store := newTestExpenseService(t)
	ctx := context.Background()

	other := []core.Expense{{ID: "x", Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 100}, Category: "Food", Description: "External"}}
	if err := store.Repository.SaveExpenses(ctx, other); err != nil {
		t.Fatalf("SaveExpenses() error = %v", err)
	}
	if err := svc.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if _, err := svc.Get("x"); err != nil {
		t.Errorf("Get(x) after reload error = %v", err)
	}
}
