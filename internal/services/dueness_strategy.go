package services

import (
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// DuenessChecker decides whether a backup schedule should run now. Each
// frequency has its own strategy.
type DuenessChecker interface {
	// IsDue reports whether a schedule last run at lastRun (zero if never)
	// should run at now. anchor is the schedule's start date.
	IsDue(lastRun, now time.Time, anchor core.Date) bool
}

// DailyChecker is due once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	return lastRun.Format(core.DateLayout) != now.Format(core.DateLayout)
}

// WeeklyChecker is due when seven or more days have passed.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	return now.Sub(lastRun) >= 7*24*time.Hour
}

// MonthlyChecker is due once per month, on or after the anchor's day.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastRun, now time.Time, anchor core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	if monthsBetween(lastRun, now) < 1 {
		return false
	}
	return reachedAnchorDay(now, anchor)
}

// QuarterlyChecker is due every three months, on or after the anchor's day.
type QuarterlyChecker struct{}

func (QuarterlyChecker) IsDue(lastRun, now time.Time, anchor core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	switch months := monthsBetween(lastRun, now); {
	case months < 3:
		return false
	case months > 3:
		return true
	}
	return reachedAnchorDay(now, anchor)
}

// NeverChecker disables automatic runs.
type NeverChecker struct{}

func (NeverChecker) IsDue(time.Time, time.Time, core.Date) bool {
	return false
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// reachedAnchorDay clamps the anchor day to the length of now's month, so a
// schedule anchored on the 31st runs on the 30th in April.
func reachedAnchorDay(now time.Time, anchor core.Date) bool {
	target := 1
	if !anchor.IsZero() {
		target = anchor.Day()
	}
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if target > lastDay {
		target = lastDay
	}
	return now.Day() >= target
}

var duenessStrategies = map[core.Frequency]DuenessChecker{
	core.Daily:     DailyChecker{},
	core.Weekly:    WeeklyChecker{},
	core.Monthly:   MonthlyChecker{},
	core.Quarterly: QuarterlyChecker{},
	core.Never:     NeverChecker{},
}

// GetDuenessChecker returns the checker for a frequency.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidFrequency, frequency)
	}
	return checker, nil
}
