// Package export renders expense collections into downloadable documents.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expensetracker/internal/core"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
)

const (
	MIMECSV  = "text/csv;charset=utf-8;"
	MIMEJSON = "application/json;charset=utf-8;"
	MIMEPDF  = "application/pdf"
)

var (
	ErrUnknownFormat     = errors.New("unknown export format")
	ErrUnsupportedFormat = errors.New("format not supported for template")
	ErrUnknownTemplate   = errors.New("unknown export template")
)

// ParseFormat accepts csv, json or pdf in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file suffix including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Document is a rendered export ready to hand to a destination.
type Document struct {
	Filename string
	MIMEType string
	Body     []byte
	Format   Format
	Records  int
}

// Size returns the body length in bytes
func (d Document) Size() int {
	return len(d.Body)
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// WithQuoteAll quotes every CSV field instead of the description only.
func WithQuoteAll(quoteAll bool) Option {
	return func(e *Exporter) { e.quoteAll = quoteAll }
}

// WithPDFCompression toggles stream compression in generated PDFs.
func WithPDFCompression(compress bool) Option {
	return func(e *Exporter) { e.compressPDF = compress }
}

// Exporter renders documents. It holds no per-export state and is safe for
// concurrent use.
type Exporter struct {
	now         func() time.Time
	quoteAll    bool
	compressPDF bool
}

func New(opts ...Option) *Exporter {
	e := &Exporter{
		now:         time.Now,
		compressPDF: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultFilename is the base name used when the caller leaves it blank.
func DefaultFilename(now time.Time) string {
	return "expenses-" + now.Format(core.DateLayout)
}

// Export renders records in the given format. A blank filename falls back
// to DefaultFilename; the extension is always appended.
func (e *Exporter) Export(ctx context.Context, format Format, records []core.Expense, filename string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	switch format {
	case FormatCSV:
		return e.CSV(records, filename), nil
	case FormatJSON:
		return e.JSON(records, filename)
	case FormatPDF:
		return e.PDF(records, filename)
	}
	return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func (e *Exporter) filename(base string, format Format) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultFilename(e.now())
	}
	return base + format.Extension()
}

func total(records []core.Expense) core.Money {
	var sum core.Money
	for _, r := range records {
		sum = sum.Add(r.Amount)
	}
	return sum
}
