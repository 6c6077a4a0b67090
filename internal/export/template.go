package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"expensetracker/internal/aggregator"
	"expensetracker/internal/core"
)

// Template selects what an export contains; Format selects how it is encoded.
type Template string

const (
	TemplateCustom           Template = "custom"
	TemplateCategoryAnalysis Template = "category-analysis"
	TemplateMonthlySummary   Template = "monthly-summary"
)

// ParseTemplate maps a template id, defaulting blank to custom.
func ParseTemplate(s string) (Template, error) {
	switch t := Template(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TemplateCustom, nil
	case TemplateCustom, TemplateCategoryAnalysis, TemplateMonthlySummary:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, s)
}

// CategoryAnalysisRow is one line of the category-analysis template.
type CategoryAnalysisRow struct {
	Category   string `csv:"category" json:"category"`
	Total      string `csv:"total" json:"total"`
	Count      int    `csv:"count" json:"count"`
	Average    string `csv:"average" json:"average"`
	Percentage string `csv:"percentage" json:"percentage"`
}

// MonthlySummaryRow is one line of the monthly-summary template.
type MonthlySummaryRow struct {
	Month       string `csv:"month" json:"month"`
	Total       string `csv:"total_expenses" json:"totalExpenses"`
	Count       int    `csv:"count" json:"count"`
	TopCategory string `csv:"top_category" json:"topCategory"`
}

// Render dispatches on template. Templates other than custom support csv
// and json only.
func (e *Exporter) Render(ctx context.Context, tmpl Template, format Format, records []core.Expense, filename string) (Document, error) {
	if tmpl == "" || tmpl == TemplateCustom {
		return e.Export(ctx, format, records, filename)
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	var rows any
	switch tmpl {
	case TemplateCategoryAnalysis:
		rows = CategoryAnalysis(records)
	case TemplateMonthlySummary:
		rows = MonthlySummary(records)
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, tmpl)
	}

	var (
		body []byte
		mime string
		err  error
	)
	switch format {
	case FormatCSV:
		body, err = gocsv.MarshalBytes(rows)
		mime = MIMECSV
	case FormatJSON:
		body, err = marshalIndent(rows)
		mime = MIMEJSON
	default:
		return Document{}, fmt.Errorf("%w: %s does not render %s", ErrUnsupportedFormat, tmpl, format)
	}
	if err != nil {
		return Document{}, fmt.Errorf("encode %s %s: %w", tmpl, format, err)
	}

	base := strings.TrimSpace(filename)
	if base == "" {
		base = string(tmpl) + "-" + e.now().Format(core.DateLayout)
	}
	return Document{
		Filename: base + format.Extension(),
		MIMEType: mime,
		Body:     body,
		Format:   format,
		Records:  len(records),
	}, nil
}

// CategoryAnalysis totals, counts and averages records per category,
// largest total first.
func CategoryAnalysis(records []core.Expense) []CategoryAnalysisRow {
	series := aggregator.CategorySeries(records)
	counts := map[core.Category]int{}
	for _, r := range records {
		counts[r.Category]++
	}
	grand := total(records)

	rows := make([]CategoryAnalysisRow, 0, len(series))
	for _, ca := range series {
		n := counts[ca.Category]
		avg := core.MoneyFromDecimal(ca.Amount.Decimal().Div(decimal.NewFromInt(int64(n))))
		rows = append(rows, CategoryAnalysisRow{
			Category:   string(ca.Category),
			Total:      ca.Amount.Fixed(),
			Count:      n,
			Average:    avg.Fixed(),
			Percentage: core.Percent(ca.Amount, grand).StringFixed(1),
		})
	}
	return rows
}

// MonthlySummary totals records per month in first-appearance order.
func MonthlySummary(records []core.Expense) []MonthlySummaryRow {
	months := aggregator.MonthlySeries(records)
	rows := make([]MonthlySummaryRow, 0, len(months))
	for _, m := range months {
		var inMonth []core.Expense
		for _, r := range records {
			if r.Date.Year() == m.Year && int(r.Date.Month()) == m.Month {
				inMonth = append(inMonth, r)
			}
		}
		top := ""
		if series := aggregator.CategorySeries(inMonth); len(series) > 0 {
			top = string(series[0].Category)
		}
		rows = append(rows, MonthlySummaryRow{
			Month:       m.Label,
			Total:       m.Amount.Fixed(),
			Count:       len(inMonth),
			TopCategory: top,
		})
	}
	return rows
}
