package aggregator

import (
	"slices"
	"strings"

	"expensetracker/internal/core"
)

// Criteria selects records for the history list. Zero dates are unbounded;
// an empty Category behaves like core.AllCategories.
type Criteria struct {
	Start    core.Date
	End      core.Date
	Category core.Category
	Search   string
}

// IsEmpty reports whether the criteria would match every record.
func (c Criteria) IsEmpty() bool {
	return c.Start.IsZero() && c.End.IsZero() && c.allCategories() && strings.TrimSpace(c.Search) == ""
}

func (c Criteria) allCategories() bool {
	return c.Category == "" || c.Category == core.AllCategories
}

// Match reports whether a single record satisfies every condition.
func (c Criteria) Match(r core.Expense) bool {
	if !inRange(r.Date, c.Start, c.End) {
		return false
	}
	if !c.allCategories() && r.Category != c.Category {
		return false
	}
	term := strings.ToLower(c.Search)
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Description), term) ||
		strings.Contains(strings.ToLower(string(r.Category)), term)
}

// Filter returns the records matching criteria, preserving input order.
func Filter(records []core.Expense, criteria Criteria) []core.Expense {
	out := make([]core.Expense, 0, len(records))
	for _, r := range records {
		if criteria.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortByDateDesc returns a copy ordered newest first. Records sharing a date
// keep their relative order.
func SortByDateDesc(records []core.Expense) []core.Expense {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b core.Expense) int {
		return b.Date.Compare(a.Date.Time)
	})
	return out
}

// Selection is the export dialog's choice: a date range and a category set.
type Selection struct {
	Start      core.Date
	End        core.Date
	Categories []core.Category
}

// SelectForExport keeps records inside the range whose category is in the
// set. An empty set selects nothing.
func SelectForExport(records []core.Expense, sel Selection) []core.Expense {
	set := make(map[core.Category]struct{}, len(sel.Categories))
	for _, c := range sel.Categories {
		set[c] = struct{}{}
	}
	out := make([]core.Expense, 0, len(records))
	for _, r := range records {
		if !inRange(r.Date, sel.Start, sel.End) {
			continue
		}
		if _, ok := set[r.Category]; !ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

func inRange(d, start, end core.Date) bool {
	if !start.IsZero() && d.Before(start.Time) {
		return false
	}
	if !end.IsZero() && d.After(end.EndOfDay()) {
		return false
	}
	return true
}
