package export

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func renderPDF(t *testing.T, records []core.Expense) string {
	t.Helper()
	doc, err := newTestExporter(WithPDFCompression(false)).PDF(records, "report")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(doc.Body), "%PDF-"))
	assert.Equal(t, "report.pdf", doc.Filename)
	assert.Equal(t, MIMEPDF, doc.MIMEType)
	return string(doc.Body)
}

func TestPDFEmptyCollection(t *testing.T) {
	body := renderPDF(t, nil)

	assert.Contains(t, body, "(Expense Report)")
	assert.Contains(t, body, "(Total Records: 0)")
	assert.Contains(t, body, "(Total Amount: $0.00)")
	assert.Contains(t, body, "(Page 1 of 1)")
	assert.NotContains(t, body, "(Category Breakdown)")
	assert.Equal(t, 1, strings.Count(body, "(Description)"), "table header still drawn")
}

func TestPDFHeaderAndBreakdown(t *testing.T) {
	body := renderPDF(t, []core.Expense{
		rec("1", 2024, 1, 5, 300, "Food", "Lunch"),
		rec("2", 2024, 1, 6, 100, "Bills", "Water"),
	})

	assert.Contains(t, body, "(Generated: March 15, 2024 14:30)")
	assert.Contains(t, body, "(Total Records: 2)")
	assert.Contains(t, body, "(Total Amount: $4.00)")
	assert.Contains(t, body, "(Jan 05, 2024)")
	assert.Contains(t, body, "($3.00)")
	assert.Contains(t, body, "(Category Breakdown)")
	assert.Contains(t, body, "(75.0%)")
	assert.Contains(t, body, "(25.0%)")
	assert.Contains(t, body, "(Page 1 of 2)")
	assert.Contains(t, body, "(Page 2 of 2)")
	assert.Less(t, strings.Index(body, "(75.0%)"), strings.Index(body, "(25.0%)"), "breakdown sorted by amount")
}

func TestPDFZeroTotalPercentages(t *testing.T) {
	body := renderPDF(t, []core.Expense{
		rec("1", 2024, 1, 5, 0, "Food", "free sample"),
	})
	assert.Contains(t, body, "(0.0%)")
}

func TestPDFNegativeTotalPercentages(t *testing.T) {
	body := renderPDF(t, []core.Expense{
		rec("1", 2024, 1, 5, 500, "Food", "groceries"),
		rec("2", 2024, 1, 6, -900, "Other", "refund"),
	})
	assert.Contains(t, body, "(0.0%)")
	assert.NotContains(t, body, "-125.0%")
	assert.NotContains(t, body, "225.0%")
}

func TestPDFPaginatesLongTables(t *testing.T) {
	records := make([]core.Expense, 0, 60)
	for i := 0; i < 60; i++ {
		records = append(records, rec(fmt.Sprint(i), 2024, 1, 1+i%28, 100, "Food", "Item"))
	}
	body := renderPDF(t, records)

	assert.Contains(t, body, "(Page 4 of 4)")
	assert.NotContains(t, body, "of 5)")
	assert.Equal(t, 3, strings.Count(body, "(Description)"), "header repeated on each table page")
}

func TestTruncate(t *testing.T) {
	forty := strings.Repeat("a", 40)
	assert.Equal(t, forty, truncate(forty))

	long := strings.Repeat("b", 37) + "cccc"
	assert.Equal(t, strings.Repeat("b", 37)+"...", truncate(long))

	accented := strings.Repeat("é", 41)
	assert.Equal(t, strings.Repeat("é", 37)+"...", truncate(accented))
}

func TestTableWidths(t *testing.T) {
	assert.Equal(t, []float64{28, 35, 25, 94}, expenseTable.widths(210))
	assert.Equal(t, []float64{60, 50, 40}, breakdownTable.widths(210))
}
