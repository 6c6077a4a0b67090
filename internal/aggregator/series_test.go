package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"expensetracker/internal/core"
)

func TestCategorySeries(t *testing.T) {
	records := []core.Expense{
		expense("1", 2024, 1, 1, 100, "Bills", "a"),
		expense("2", 2024, 1, 2, 300, "Food", "b"),
		expense("3", 2024, 1, 3, 200, "Bills", "c"),
		expense("4", 2024, 1, 4, 300, "Travel", "d"),
	}
	assert.Equal(t, []core.CategoryAmount{
		{Category: "Bills", Amount: core.Money{Cents: 300}},
		{Category: "Food", Amount: core.Money{Cents: 300}},
		{Category: "Travel", Amount: core.Money{Cents: 300}},
	}, CategorySeries(records))

	assert.Empty(t, CategorySeries(nil))
}

func TestMonthlySeries(t *testing.T) {
	records := []core.Expense{
		expense("1", 2024, 2, 10, 100, "Food", "a"),
		expense("2", 2024, 1, 5, 50, "Food", "b"),
		expense("3", 2024, 2, 28, 25, "Bills", "c"),
		expense("4", 2023, 2, 1, 1, "Bills", "d"),
	}
	got := MonthlySeries(records)
	assert.Equal(t, []core.MonthAmount{
		{Label: "Feb 2024", Year: 2024, Month: 2, Amount: core.Money{Cents: 125}},
		{Label: "Jan 2024", Year: 2024, Month: 1, Amount: core.Money{Cents: 50}},
		{Label: "Feb 2023", Year: 2023, Month: 2, Amount: core.Money{Cents: 1}},
	}, got)
}

func TestInsights(t *testing.T) {
	records := []core.Expense{
		expense("1", 2024, 3, 2, 100, "Food", "a"),
		expense("2", 2024, 3, 5, 900, "Bills", "b"),
		expense("3", 2024, 3, 10, 400, "Shopping", "c"),
		expense("4", 2024, 3, 11, 50, "Other", "d"),
		expense("5", 2024, 2, 28, 99999, "Travel", "last month"),
		expense("6", 2024, 3, 12, 200, "Food", "e"),
	}

	got := Insights(records, now)

	assert.Equal(t, int64(1650), got.MonthTotal.Cents)
	assert.Equal(t, []core.CategoryAmount{
		{Category: "Bills", Amount: core.Money{Cents: 900}},
		{Category: "Shopping", Amount: core.Money{Cents: 400}},
		{Category: "Food", Amount: core.Money{Cents: 300}},
	}, got.TopCategories)
	assert.Equal(t, 3, got.BudgetStreak)
}

func TestBudgetStreak(t *testing.T) {
	assert.Equal(t, 14, budgetStreak(nil, now), "days since month start")

	future := []core.Expense{expense("1", 2024, 3, 20, 1, "Food", "x")}
	assert.Equal(t, 0, budgetStreak(future, now))

	today := []core.Expense{expense("1", 2024, 3, 15, 1, "Food", "x")}
	assert.Equal(t, 0, budgetStreak(today, time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)))

	old := []core.Expense{
		expense("1", 2024, 1, 15, 1, "Food", "x"),
		expense("2", 2024, 3, 1, 1, "Food", "y"),
	}
	assert.Equal(t, 14, budgetStreak(old, now))
}
