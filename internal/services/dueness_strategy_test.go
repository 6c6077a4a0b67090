package services

import (
	"errors"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func TestDailyChecker_IsDue(t *testing.T) {
	checker := DailyChecker{}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	anchor := core.NewDate(2024, 1, 1)

	tests := []struct {
		name    string
		lastRun time.Time
		want    bool
	}{
		{name: "never run - is due", lastRun: time.Time{}, want: true},
		{name: "run today - not due", lastRun: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), want: false},
		{name: "run yesterday - is due", lastRun: time.Date(2024, 1, 14, 23, 59, 0, 0, time.UTC), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastRun, now, anchor); got != tt.want {
				t.Errorf("DailyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeeklyChecker_IsDue(t *testing.T) {
	checker := WeeklyChecker{}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		lastRun time.Time
		want    bool
	}{
		{name: "never run - is due", lastRun: time.Time{}, want: true},
		{name: "run 3 days ago - not due", lastRun: now.AddDate(0, 0, -3), want: false},
		{name: "run exactly 7 days ago - is due", lastRun: now.AddDate(0, 0, -7), want: true},
		{name: "run 10 days ago - is due", lastRun: now.AddDate(0, 0, -10), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastRun, now, core.Date{}); got != tt.want {
				t.Errorf("WeeklyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}

	tests := []struct {
		name    string
		lastRun time.Time
		now     time.Time
		anchor  core.Date
		want    bool
	}{
		{
			name:   "never run - is due",
			now:    time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			anchor: core.NewDate(2024, 1, 15),
			want:   true,
		},
		{
			name:    "already run this month - not due",
			lastRun: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
			anchor:  core.NewDate(2024, 1, 1),
			want:    false,
		},
		{
			name:    "new month before anchor day - not due",
			lastRun: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			anchor:  core.NewDate(2024, 1, 15),
			want:    false,
		},
		{
			name:    "new month on anchor day - is due",
			lastRun: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
			anchor:  core.NewDate(2024, 1, 15),
			want:    true,
		},
		{
			name:    "anchor on the 31st clamps to month end",
			lastRun: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
			anchor:  core.NewDate(2024, 1, 31),
			want:    true,
		},
		{
			name:    "leap february clamps to the 29th",
			lastRun: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
			anchor:  core.NewDate(2024, 1, 31),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastRun, tt.now, tt.anchor); got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuarterlyChecker_IsDue(t *testing.T) {
	checker := QuarterlyChecker{}
	anchor := core.NewDate(2024, 1, 10)

	tests := []struct {
		name    string
		lastRun time.Time
		now     time.Time
		want    bool
	}{
		{name: "never run - is due", now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), want: true},
		{
			name:    "two months later - not due",
			lastRun: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
			want:    false,
		},
		{
			name:    "three months later before anchor day - not due",
			lastRun: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
			want:    false,
		},
		{
			name:    "three months later on anchor day - is due",
			lastRun: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
			want:    true,
		},
		{
			name:    "over a quarter late - is due",
			lastRun: time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC),
			now:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastRun, tt.now, anchor); got != tt.want {
				t.Errorf("QuarterlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeverChecker_IsDue(t *testing.T) {
	if (NeverChecker{}).IsDue(time.Time{}, time.Now(), core.Date{}) {
		t.Error("NeverChecker.IsDue() = true, want false")
	}
}

func TestGetDuenessChecker(t *testing.T) {
	tests := []struct {
		frequency core.Frequency
		wantType  DuenessChecker
		wantErr   bool
	}{
		{frequency: core.Daily, wantType: DailyChecker{}},
		{frequency: core.Weekly, wantType: WeeklyChecker{}},
		{frequency: core.Monthly, wantType: MonthlyChecker{}},
		{frequency: core.Quarterly, wantType: QuarterlyChecker{}},
		{frequency: core.Never, wantType: NeverChecker{}},
		{frequency: "hourly", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			got, err := GetDuenessChecker(tt.frequency)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidFrequency) {
					t.Errorf("GetDuenessChecker() error = %v, want ErrInvalidFrequency", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetDuenessChecker() error = %v", err)
			}
			if got != tt.wantType {
				t.Errorf("GetDuenessChecker() = %T, want %T", got, tt.wantType)
			}
		})
	}
}
