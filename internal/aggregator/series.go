package aggregator

import (
	"slices"
	"time"

	"expensetracker/internal/core"
)

const monthLabelLayout = "Jan 2006"

// CategorySeries totals records per category, largest first. Equal totals
// keep first-appearance order.
func CategorySeries(records []core.Expense) []core.CategoryAmount {
	out := groupByCategory(records)
	SortByAmountDesc(out)
	return out
}

// SortByAmountDesc orders amounts largest first, stable on ties.
func SortByAmountDesc(rows []core.CategoryAmount) {
	slices.SortStableFunc(rows, func(a, b core.CategoryAmount) int {
		switch {
		case a.Amount.Cents > b.Amount.Cents:
			return -1
		case a.Amount.Cents < b.Amount.Cents:
			return 1
		}
		return 0
	})
}

// MonthlySeries totals records per calendar month, in first-appearance order
// of the input.
func MonthlySeries(records []core.Expense) []core.MonthAmount {
	var out []core.MonthAmount
	index := map[string]int{}
	for _, r := range records {
		label := r.Date.Format(monthLabelLayout)
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, core.MonthAmount{
				Label: label,
				Year:  r.Date.Year(),
				Month: int(r.Date.Month()),
			})
		}
		out[i].Amount = out[i].Amount.Add(r.Amount)
	}
	return out
}

// Insights computes the current month's overview as of now.
func Insights(records []core.Expense, now time.Time) core.Insights {
	start, end := monthBounds(now)

	var month []core.Expense
	for _, r := range records {
		if within(r.Date.Time, start, end) {
			month = append(month, r)
		}
	}

	top := groupByCategory(month)
	SortByAmountDesc(top)
	if len(top) > 3 {
		top = top[:3]
	}

	var total core.Money
	for _, r := range month {
		total = total.Add(r.Amount)
	}

	return core.Insights{
		MonthTotal:    total,
		TopCategories: top,
		BudgetStreak:  budgetStreak(records, now),
	}
}

// budgetStreak is the number of whole days since the latest expense, or
// since the first of the month when there are none.
func budgetStreak(records []core.Expense, now time.Time) int {
	today := core.DateOf(now)
	if len(records) == 0 {
		return today.Day() - 1
	}
	latest := records[0].Date
	for _, r := range records[1:] {
		if r.Date.After(latest.Time) {
			latest = r.Date
		}
	}
	days := int(today.Sub(latest.Time).Hours() / 24)
	return max(0, days)
}

func groupByCategory(records []core.Expense) []core.CategoryAmount {
	var out []core.CategoryAmount
	index := map[core.Category]int{}
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, core.CategoryAmount{Category: r.Category})
		}
		out[i].Amount = out[i].Amount.Add(r.Amount)
	}
	return out
}
