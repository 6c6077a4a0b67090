// Package aggregator computes read-side views over an expense collection:
// summary statistics, filtered lists, chart series and monthly insights.
//
// Every function here is pure: inputs are never mutated and results are
// freshly allocated.
package aggregator

import (
	"time"

	"expensetracker/internal/core"
)

// ComputeSummary aggregates records against the known categories as of now.
//
// The breakdown lists every known category in registry order, followed by
// categories found only in the data, in first-appearance order.
func ComputeSummary(records []core.Expense, known []core.Category, now time.Time) core.SummaryStatistics {
	start, end := monthBounds(now)

	breakdown := make([]core.CategoryAmount, 0, len(known))
	index := make(map[core.Category]int, len(known))
	for _, c := range known {
		if _, ok := index[c]; ok {
			continue
		}
		index[c] = len(breakdown)
		breakdown = append(breakdown, core.CategoryAmount{Category: c})
	}

	var stats core.SummaryStatistics
	for _, r := range records {
		stats.TotalSpending = stats.TotalSpending.Add(r.Amount)
		if within(r.Date.Time, start, end) {
			stats.MonthlySpending = stats.MonthlySpending.Add(r.Amount)
		}

		i, ok := index[r.Category]
		if !ok {
			i = len(breakdown)
			index[r.Category] = i
			breakdown = append(breakdown, core.CategoryAmount{Category: r.Category})
		}
		breakdown[i].Amount = breakdown[i].Amount.Add(r.Amount)
	}
	stats.CategoryBreakdown = breakdown

	var best core.Money
	for i := range breakdown {
		if breakdown[i].Amount.Cents > best.Cents {
			best = breakdown[i].Amount
			top := breakdown[i]
			stats.TopCategory = &top
		}
	}

	return stats
}

// Summarize is ComputeSummary with the registry contents and the wall clock.
func Summarize(records []core.Expense, reg *core.Registry) core.SummaryStatistics {
	return ComputeSummary(records, reg.List(), time.Now())
}

// monthBounds returns the first and last instant of now's calendar month,
// expressed on the UTC-midnight scale calendar dates use.
func monthBounds(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	start := core.NewDate(y, int(m), 1).Time
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
