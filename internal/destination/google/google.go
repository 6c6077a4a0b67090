// Package google appends exported rows to a Google Sheets spreadsheet.
package google

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/export"
	"expensetracker/internal/log"
)

const Name = "sheets"

var ErrCSVOnly = errors.New("sheets destination accepts csv documents only")

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// appender is the slice of the Sheets API the destination needs.
type appender interface {
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) (updatedRange string, err error)
}

type sheetsAppender struct {
	svc *gsheet.Service
}

func (a sheetsAppender) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) (string, error) {
	resp, err := a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if resp.Updates == nil {
		return rng, nil
	}
	return resp.Updates.UpdatedRange, nil
}

type Client struct {
	api           appender
	spreadsheetID string
	sheetName     string
	breaker       *gobreaker.CircuitBreaker
	logger        *log.Logger
}

// New creates a client authenticated with service account credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(sheetsAppender{svc: svc}, cfg, logger), nil
}

func newClient(api appender, cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Expenses"
	}
	return &Client{
		api:           api,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetName:     sheet,
		breaker:       newCircuitBreaker("google-sheets"),
		logger:        logger.WithComponent(log.ComponentDestination),
	}
}

func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		credentialsJSON = []byte(cfg.ServiceAccountJSON)
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	if logger != nil {
		logger.DebugContext(ctx, "Creating Google Sheets service",
			"credentials_size", len(credentialsJSON),
			"scope", gsheet.SpreadsheetsScope)
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

func (c *Client) Name() string { return Name }

// Deliver parses the CSV document back into rows and appends them, header
// included, below the existing data of the configured sheet.
func (c *Client) Deliver(ctx context.Context, doc export.Document) (string, error) {
	if doc.Format != export.FormatCSV {
		return "", fmt.Errorf("%w: got %s", ErrCSVOnly, doc.Format)
	}
	rows, err := parseRows(doc.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", doc.Filename, err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("parse %s: no rows", doc.Filename)
	}

	rng := fmt.Sprintf("%s!A1", c.sheetName)
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.api.Append(ctx, c.spreadsheetID, rng, rows)
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Sheets append failed",
			log.FieldFilename, doc.Filename,
			log.FieldRecords, doc.Records,
			"breaker_state", c.breaker.State().String(),
			log.FieldError, err)
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := out.(string)
	c.logger.InfoContext(ctx, "Appended export to sheet",
		log.FieldFilename, doc.Filename,
		log.FieldRef, ref,
		log.FieldRecords, doc.Records)
	return ref, nil
}

// State exposes the breaker state for readiness checks.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func parseRows(body []byte) ([][]any, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
