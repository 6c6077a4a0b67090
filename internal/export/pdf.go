package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"expensetracker/internal/aggregator"
	"expensetracker/internal/core"
)

const (
	pdfFont          = "Helvetica"
	pdfMarginX       = 14.0
	pdfTableTop      = 52.0
	pdfBreakdownTop  = 30.0
	pdfBottomMargin  = 20.0
	pdfDescMaxLen    = 40
	pdfDescKeepLen   = 37
	pdfTableDateFmt  = "Jan 02, 2006"
	pdfGeneratedFmt  = "January 02, 2006 15:04"
	ptToMM           = 25.4 / 72
	pdfLineHeightMul = 1.15
)

type rgb struct{ r, g, b int }

var (
	colorPrimary   = rgb{37, 99, 235}
	colorMeta      = rgb{100, 100, 100}
	colorRule      = rgb{220, 220, 220}
	colorStripe    = rgb{245, 247, 250}
	colorFooter    = rgb{150, 150, 150}
	colorBody      = rgb{0, 0, 0}
	colorHeaderTxt = rgb{255, 255, 255}
)

type column struct {
	header string
	width  float64 // 0 takes the remaining table width
	align  string  // fpdf alignment, "L" or "R"
}

type table struct {
	columns      []column
	fontSize     float64
	headFontSize float64
	padding      float64
}

var (
	expenseTable = table{
		columns: []column{
			{header: "Date", width: 28, align: "L"},
			{header: "Category", width: 35, align: "L"},
			{header: "Amount", width: 25, align: "R"},
			{header: "Description", align: "L"},
		},
		fontSize:     9,
		headFontSize: 10,
		padding:      3,
	}
	breakdownTable = table{
		columns: []column{
			{header: "Category", width: 60, align: "L"},
			{header: "Amount", width: 50, align: "R"},
			{header: "Percentage", width: 40, align: "R"},
		},
		fontSize:     10,
		headFontSize: 10,
		padding:      4,
	}
)

// PDF renders the printable report: a record table on page one and, when
// any category is present, a breakdown table on page two. Every page gets a
// "Page N of TOTAL" footer.
func (e *Exporter) PDF(records []core.Expense, filename string) (Document, error) {
	now := e.now()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(e.compressPDF)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(pdfMarginX, pdfMarginX, pdfMarginX)
	pdf.SetTitle("Expense Report", true)
	pdf.SetCreator("expensetracker", true)
	pdf.SetCreationDate(now)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		w, h := pdf.GetPageSize()
		pdf.SetFont(pdfFont, "", 8)
		setTextColor(pdf, colorFooter)
		pdf.SetXY(0, h-13)
		pdf.CellFormat(w, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont(pdfFont, "", 20)
	setTextColor(pdf, colorPrimary)
	pdf.Text(pdfMarginX, 22, "Expense Report")

	pdf.SetFont(pdfFont, "", 10)
	setTextColor(pdf, colorMeta)
	pdf.Text(pdfMarginX, 30, "Generated: "+now.Format(pdfGeneratedFmt))
	pdf.Text(pdfMarginX, 36, fmt.Sprintf("Total Records: %d", len(records)))
	pdf.Text(pdfMarginX, 42, "Total Amount: "+total(records).Dollars())

	pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	pdf.SetLineWidth(0.2)
	w, _ := pdf.GetPageSize()
	pdf.Line(pdfMarginX, 48, w-pdfMarginX, 48)

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Date.Format(pdfTableDateFmt),
			string(r.Category),
			r.Amount.Dollars(),
			truncate(r.Description),
		})
	}
	expenseTable.draw(pdf, tr, rows, pdfTableTop, pdfTableTop)

	breakdown := aggregator.CategorySeries(records)
	if len(breakdown) > 0 {
		pdf.AddPage()
		pdf.SetFont(pdfFont, "", 16)
		setTextColor(pdf, colorPrimary)
		pdf.Text(pdfMarginX, 22, "Category Breakdown")

		grand := total(records)
		breakdownRows := make([][]string, 0, len(breakdown))
		for _, ca := range breakdown {
			breakdownRows = append(breakdownRows, []string{
				string(ca.Category),
				ca.Amount.Dollars(),
				core.Percent(ca.Amount, grand).StringFixed(1) + "%",
			})
		}
		breakdownTable.draw(pdf, tr, breakdownRows, pdfBreakdownTop, pdfTableTop)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("render pdf export: %w", err)
	}

	return Document{
		Filename: e.filename(filename, FormatPDF),
		MIMEType: MIMEPDF,
		Body:     buf.Bytes(),
		Format:   FormatPDF,
		Records:  len(records),
	}, nil
}

// truncate shortens descriptions longer than 40 characters to 37 plus "...".
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= pdfDescMaxLen {
		return s
	}
	return string(r[:pdfDescKeepLen]) + "..."
}

func setTextColor(pdf *fpdf.Fpdf, c rgb) {
	pdf.SetTextColor(c.r, c.g, c.b)
}

func lineHeight(fontSize float64) float64 {
	return fontSize * ptToMM * pdfLineHeightMul
}

// widths resolves auto columns against the printable width.
func (t table) widths(pageWidth float64) []float64 {
	avail := pageWidth - 2*pdfMarginX
	fixed, auto := 0.0, 0
	for _, c := range t.columns {
		if c.width > 0 {
			fixed += c.width
		} else {
			auto++
		}
	}
	out := make([]float64, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.width
		if c.width == 0 && auto > 0 {
			out[i] = (avail - fixed) / float64(auto)
		}
	}
	return out
}

// draw lays out a header band and striped body rows starting at startY,
// repeating the header on each continuation page, which starts at pageTop.
func (t table) draw(pdf *fpdf.Fpdf, tr func(string) string, rows [][]string, startY, pageTop float64) {
	pageW, pageH := pdf.GetPageSize()
	widths := t.widths(pageW)
	bottom := pageH - pdfBottomMargin

	headers := make([]string, len(t.columns))
	for i, c := range t.columns {
		headers[i] = c.header
	}

	y := startY
	y = t.drawRow(pdf, tr, widths, headers, y, true, false)

	for i, row := range rows {
		h := t.rowHeight(pdf, tr, widths, row, false)
		if y+h > bottom {
			pdf.AddPage()
			y = t.drawRow(pdf, tr, widths, headers, pageTop, true, false)
		}
		y = t.drawRow(pdf, tr, widths, row, y, false, i%2 == 1)
	}
}

func (t table) applyFont(pdf *fpdf.Fpdf, head bool) float64 {
	if head {
		pdf.SetFont(pdfFont, "B", t.headFontSize)
		setTextColor(pdf, colorHeaderTxt)
		return t.headFontSize
	}
	pdf.SetFont(pdfFont, "", t.fontSize)
	setTextColor(pdf, colorBody)
	return t.fontSize
}

func (t table) rowHeight(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, cells []string, head bool) float64 {
	size := t.applyFont(pdf, head)
	lines := 1
	for i, cell := range cells {
		if n := len(wrapText(pdf, tr(cell), widths[i]-2*t.padding)); n > lines {
			lines = n
		}
	}
	return float64(lines)*lineHeight(size) + 2*t.padding
}

// drawRow renders one row at y and returns the y below it.
func (t table) drawRow(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, cells []string, y float64, head, stripe bool) float64 {
	h := t.rowHeight(pdf, tr, widths, cells, head)
	size := t.applyFont(pdf, head)
	lh := lineHeight(size)

	switch {
	case head:
		pdf.SetFillColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
		pdf.Rect(pdfMarginX, y, sum(widths), h, "F")
	case stripe:
		pdf.SetFillColor(colorStripe.r, colorStripe.g, colorStripe.b)
		pdf.Rect(pdfMarginX, y, sum(widths), h, "F")
	}

	x := pdfMarginX
	for i, cell := range cells {
		inner := widths[i] - 2*t.padding
		for j, line := range wrapText(pdf, tr(cell), inner) {
			pdf.SetXY(x+t.padding, y+t.padding+float64(j)*lh)
			pdf.CellFormat(inner, lh, line, "", 0, t.columns[i].align, false, 0, "")
		}
		x += widths[i]
	}
	return y + h
}

// wrapText breaks s into lines no wider than width at the current font.
// s is expected in the single-byte encoding produced by the translator.
func wrapText(pdf *fpdf.Fpdf, s string, width float64) []string {
	width -= 2 * pdf.GetCellMargin()
	var lines []string
	line := ""
	for _, word := range strings.Fields(s) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if pdf.GetStringWidth(candidate) <= width {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
		for len(word) > 1 && pdf.GetStringWidth(word) > width {
			n := len(word) - 1
			for n > 1 && pdf.GetStringWidth(word[:n]) > width {
				n--
			}
			lines = append(lines, word[:n])
			word = word[n:]
		}
		line = word
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}
