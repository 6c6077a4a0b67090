package export

import (
	"strings"

	"expensetracker/internal/core"
)

var csvHeader = []string{"Date", "Category", "Amount", "Description"}

// CSV renders the delimited-text export. Only the description is quoted
// unless the exporter was built WithQuoteAll. Rows are joined by \n with no
// trailing newline.
func (e *Exporter) CSV(records []core.Expense, filename string) Document {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, e.csvLine(csvHeader, false))
	for _, r := range records {
		lines = append(lines, e.csvLine([]string{
			r.Date.String(),
			string(r.Category),
			r.Amount.String(),
			r.Description,
		}, true))
	}

	return Document{
		Filename: e.filename(filename, FormatCSV),
		MIMEType: MIMECSV,
		Body:     []byte(strings.Join(lines, "\n")),
		Format:   FormatCSV,
		Records:  len(records),
	}
}

func (e *Exporter) csvLine(fields []string, quoteLast bool) string {
	out := make([]string, len(fields))
	for i, f := range fields {
		if e.quoteAll || (quoteLast && i == len(fields)-1) {
			out[i] = quote(f)
		} else {
			out[i] = f
		}
	}
	return strings.Join(out, ",")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
