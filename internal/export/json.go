package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"expensetracker/internal/core"
)

const exportDateLayout = "2006-01-02T15:04:05.000Z"

type jsonReport struct {
	ExportDate   string        `json:"exportDate"`
	TotalRecords int           `json:"totalRecords"`
	TotalAmount  core.Money    `json:"totalAmount"`
	Expenses     []jsonExpense `json:"expenses"`
}

type jsonExpense struct {
	ID          string        `json:"id"`
	Date        string        `json:"date"`
	Category    core.Category `json:"category"`
	Amount      core.Money    `json:"amount"`
	Description string        `json:"description"`
}

// JSON renders the structured export with 2-space indentation.
func (e *Exporter) JSON(records []core.Expense, filename string) (Document, error) {
	report := jsonReport{
		ExportDate:   e.now().UTC().Format(exportDateLayout),
		TotalRecords: len(records),
		TotalAmount:  total(records),
		Expenses:     make([]jsonExpense, 0, len(records)),
	}
	for _, r := range records {
		report.Expenses = append(report.Expenses, jsonExpense{
			ID:          r.ID,
			Date:        r.Date.String(),
			Category:    r.Category,
			Amount:      r.Amount,
			Description: r.Description,
		})
	}

	body, err := marshalIndent(report)
	if err != nil {
		return Document{}, fmt.Errorf("encode json export: %w", err)
	}

	return Document{
		Filename: e.filename(filename, FormatJSON),
		MIMEType: MIMEJSON,
		Body:     body,
		Format:   FormatJSON,
		Records:  len(records),
	}, nil
}

// marshalIndent is json.MarshalIndent without HTML escaping.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
