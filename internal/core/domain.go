package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar-date form used in forms, CSV and JSON exports.
	DateLayout = "2006-01-02"
	// timestampLayout matches the ISO form dates are persisted with.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

type (
	// Date is a calendar date held as midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          string   `json:"id"`
		Date        Date     `json:"date"`
		Amount      Money    `json:"amount"`
		Category    Category `json:"category"`
		Description string   `json:"description"`
	}

	// ExpenseInput carries raw form values before parsing.
	ExpenseInput struct {
		Date        string `json:"date"`
		Amount      string `json:"amount"`
		Category    string `json:"category"`
		Description string `json:"description"`
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategory     = errors.New("empty category")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrNotFound          = errors.New("not found")
)

// Form field names used as FieldErrors keys
const (
	FieldDate        = "date"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldDescription = "description"
)

// FieldErrors maps a form field to the message shown next to it.
type FieldErrors map[string]string

// ValidationError reports every invalid field of a submitted form at once.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range []string{FieldDate, FieldAmount, FieldCategory, FieldDescription} {
		if msg, ok := e.Fields[field]; ok {
			parts = append(parts, field+": "+msg)
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date t falls on in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts a plain YYYY-MM-DD or an RFC 3339 timestamp.
// Timestamps are reduced to their UTC calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t.UTC()), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date as YYYY-MM-DD
func (d Date) String() string {
	return d.Format(DateLayout)
}

// EndOfDay is the last millisecond of the date.
func (d Date) EndOfDay() time.Time {
	return d.Time.Add(24*time.Hour - time.Millisecond)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(timestampLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(e.Category)) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// Parse validates form input against the registry and returns the expense
// it describes. The ID is left empty for the caller to assign.
func (in ExpenseInput) Parse(reg *Registry) (Expense, error) {
	fields := FieldErrors{}
	var out Expense

	if strings.TrimSpace(in.Date) == "" {
		fields[FieldDate] = "Date is required"
	} else if d, err := ParseDate(in.Date); err != nil {
		fields[FieldDate] = "Date is invalid"
	} else {
		out.Date = d
	}

	if cents, err := ParseDecimalToCents(in.Amount); err != nil {
		fields[FieldAmount] = "Amount must be greater than 0"
	} else {
		out.Amount = Money{Cents: cents}
	}

	if c, err := reg.Validate(in.Category); err != nil {
		if errors.Is(err, ErrEmptyCategory) {
			fields[FieldCategory] = "Category is required"
		} else {
			fields[FieldCategory] = "Category is not recognized"
		}
	} else {
		out.Category = c
	}

	if desc := strings.TrimSpace(in.Description); desc == "" {
		fields[FieldDescription] = "Description is required"
	} else {
		out.Description = desc
	}

	if len(fields) > 0 {
		return Expense{}, &ValidationError{Fields: fields}
	}
	return out, nil
}

// InputFrom turns a stored expense back into form values, for edit forms.
func InputFrom(e Expense) ExpenseInput {
	return ExpenseInput{
		Date:        e.Date.String(),
		Amount:      e.Amount.String(),
		Category:    string(e.Category),
		Description: e.Description,
	}
}
