// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// list filters, export selections and expense bodies sent as JSON or forms.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expensetracker/internal/aggregator"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

const maxBodyBytes = 1 << 20

var errBadQuery = errors.New("invalid query parameter")

// ParseCriteria reads the history filter from start, end, category and q.
func ParseCriteria(query url.Values) (aggregator.Criteria, error) {
	var c aggregator.Criteria
	var err error
	if v := strings.TrimSpace(query.Get("start")); v != "" {
		if c.Start, err = core.ParseDate(v); err != nil {
			return aggregator.Criteria{}, fmt.Errorf("%w: start", errBadQuery)
		}
	}
	if v := strings.TrimSpace(query.Get("end")); v != "" {
		if c.End, err = core.ParseDate(v); err != nil {
			return aggregator.Criteria{}, fmt.Errorf("%w: end", errBadQuery)
		}
	}
	c.Category = core.Category(sanitizeInput(query.Get("category")))
	c.Search = sanitizeInput(query.Get("q"))
	return c, nil
}

// ParseCategories splits a comma separated list. A missing parameter means
// every category (nil); a present but blank one means none (empty slice).
func ParseCategories(query url.Values, key string) []core.Category {
	raw, ok := query[key]
	if !ok {
		return nil
	}
	out := []core.Category{}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if c := core.Category(sanitizeInput(part)); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

// ParseExportQuery builds an export request from the download query string.
func ParseExportQuery(query url.Values) core.ExportRequest {
	return core.ExportRequest{
		Template:    sanitizeInput(query.Get("template")),
		Format:      sanitizeInput(query.Get("format")),
		Filename:    sanitizeInput(query.Get("filename")),
		Start:       sanitizeInput(query.Get("start")),
		End:         sanitizeInput(query.Get("end")),
		Categories:  ParseCategories(query, "categories"),
		Destination: sanitizeInput(query.Get("destination")),
	}
}

// RequestBodyParser handles JSON and form-encoded bodies alike.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of the body once.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.IsJSON() {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Decode unmarshals a JSON body into v. Form bodies are rejected.
func (p *RequestBodyParser) Decode(v any) error {
	if p.err != nil {
		return p.err
	}
	if !p.IsJSON() {
		return errors.New("expected a JSON body")
	}
	return json.Unmarshal(p.body, v)
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// ExpenseInput collects the expense form fields.
func (p *RequestBodyParser) ExpenseInput() core.ExpenseInput {
	return core.ExpenseInput{
		Date:        p.Get("date"),
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Description: p.Get("description"),
	}
}

// ScheduleInput collects the backup schedule fields.
func (p *RequestBodyParser) ScheduleInput() services.ScheduleInput {
	in := services.ScheduleInput{
		Template:    p.Get("template"),
		Format:      p.Get("format"),
		Frequency:   p.Get("frequency"),
		Destination: p.Get("destination"),
	}
	if p.Has("enabled") {
		switch strings.ToLower(p.Get("enabled")) {
		case "true", "1", "on", "yes":
			in.Enabled = ptr(true)
		default:
			in.Enabled = ptr(false)
		}
	}
	return in
}

// ExportRequest reads an async export request. JSON bodies may send
// categories as an array; forms send a comma separated value.
func (p *RequestBodyParser) ExportRequest() (core.ExportRequest, error) {
	if p.IsJSON() {
		var req core.ExportRequest
		if err := p.Decode(&req); err != nil {
			return core.ExportRequest{}, err
		}
		for i, c := range req.Categories {
			req.Categories[i] = core.Category(sanitizeInput(string(c)))
		}
		return req, nil
	}
	if err := p.Parse(); err != nil {
		return core.ExportRequest{}, err
	}
	return ParseExportQuery(p.formData), nil
}

// IsJSON trusts the content type, then sniffs the first byte.
func (p *RequestBodyParser) IsJSON() bool {
	if strings.HasPrefix(strings.ToLower(p.contentType), "application/json") {
		return true
	}
	trimmed := strings.TrimSpace(string(p.body))
	return trimmed != "" && (trimmed[0] == '{' || trimmed[0] == '[')
}

func ptr[T any](v T) *T { return &v }

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
