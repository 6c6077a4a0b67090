package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-01-15", NewDate(2024, 1, 15), true},
		{"2024-01-15T00:00:00.000Z", NewDate(2024, 1, 15), true},
		{"2024-01-15T23:30:00Z", NewDate(2024, 1, 15), true},
		{"2024-01-15T01:00:00+02:00", NewDate(2024, 1, 14), true},
		{"15/01/2024", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want.Time) {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
		} else if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 3, 9))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2024-03-09T00:00:00.000Z"` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var d Date
	if err := json.Unmarshal(b, &d); err != nil {
		t.Fatal(err)
	}
	if d.String() != "2024-03-09" {
		t.Fatalf("round trip gave %s", d)
	}
	if err := json.Unmarshal([]byte(`12`), &d); err == nil {
		t.Fatal("expected error for non-string date")
	}
}

func TestDateEndOfDay(t *testing.T) {
	end := NewDate(2024, 1, 31).EndOfDay()
	want := time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !end.Equal(want) {
		t.Fatalf("expected %v, got %v", want, end)
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	tm := time.Date(2024, 6, 1, 2, 0, 0, 0, loc)
	if got := DateOf(tm).String(); got != "2024-06-01" {
		t.Fatalf("expected 2024-06-01, got %s", got)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		ID:          "e1",
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      Money{Cents: 100},
		Category:    "Food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: Date{}, Description: "a", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Description: "  ", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 0}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: -5}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}, Category: ""},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExpenseInputParse(t *testing.T) {
	reg := NewRegistry()

	got, err := ExpenseInput{
		Date:        "2024-01-15",
		Amount:      "12,50",
		Category:    " Food ",
		Description: "  Lunch  ",
	}.Parse(reg)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got.Amount.Cents != 1250 || got.Category != "Food" || got.Description != "Lunch" || got.Date.String() != "2024-01-15" {
		t.Fatalf("unexpected parse result %+v", got)
	}
	if got.ID != "" {
		t.Fatalf("expected empty ID, got %q", got.ID)
	}

	_, err = ExpenseInput{Amount: "0", Category: "Travel", Description: " "}.Parse(reg)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := FieldErrors{
		FieldDate:        "Date is required",
		FieldAmount:      "Amount must be greater than 0",
		FieldCategory:    "Category is not recognized",
		FieldDescription: "Description is required",
	}
	for field, msg := range want {
		if verr.Fields[field] != msg {
			t.Errorf("field %s: expected %q, got %q", field, msg, verr.Fields[field])
		}
	}

	_, err = ExpenseInput{Date: "2024-01-15", Amount: "1", Category: "", Description: "x"}.Parse(reg)
	if !errors.As(err, &verr) || verr.Fields[FieldCategory] != "Category is required" {
		t.Fatalf("expected category required, got %v", err)
	}
}

func TestExpenseInputParseLongDescription(t *testing.T) {
	desc := strings.Repeat("é", 150) + strings.Repeat("x", 300)
	got, err := ExpenseInput{Date: "2024-05-01", Amount: "10", Category: "Food", Description: desc}.Parse(NewRegistry())
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got.Description != desc {
		t.Fatalf("description altered: %q", got.Description)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestInputFromRoundTrip(t *testing.T) {
	reg := NewRegistry()
	e := Expense{Date: NewDate(2024, 2, 29), Amount: Money{Cents: 1205}, Category: "Bills", Description: "Power"}
	back, err := InputFrom(e).Parse(reg)
	if err != nil {
		t.Fatal(err)
	}
	if back != e {
		t.Fatalf("expected %+v, got %+v", e, back)
	}
}

func TestFrequencyNext(t *testing.T) {
	from := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		f    Frequency
		want time.Time
	}{
		{Daily, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)},
		{Weekly, time.Date(2024, 2, 7, 9, 0, 0, 0, time.UTC)},
		{Monthly, from.AddDate(0, 1, 0)},
		{Quarterly, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
		{Never, time.Time{}},
	}
	for _, tc := range cases {
		if got := tc.f.Next(from); !got.Equal(tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.f, tc.want, got)
		}
	}
	if err := Frequency("hourly").Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestExportStatusTerminal(t *testing.T) {
	for _, s := range []ExportStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []ExportStatus{StatusPending, StatusProcessing, StatusScheduled} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
