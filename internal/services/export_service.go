package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/aggregator"
	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/destination"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/worker"
)

var (
	ErrNothingToExport = errors.New("no expenses to export")
	ErrInvalidRequest  = errors.New("invalid export request")
	ErrNotCancellable  = errors.New("export cannot be cancelled")
	ErrNotRetryable    = errors.New("export cannot be retried")
)

// ExpenseSource is the collection exports read from.
type ExpenseSource interface {
	All() []core.Expense
	Reload(ctx context.Context) error
}

// ExportPublisher hands export requests to a separate worker process.
type ExportPublisher interface {
	PublishExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error
}

type ExportOption func(*ExportService)

// WithPublisher makes Submit publish requests instead of running them here.
func WithPublisher(p ExportPublisher) ExportOption {
	return func(s *ExportService) { s.publisher = p }
}

// WithFreshReads reloads the collection before each queued export, for
// processes that do not own the collection.
func WithFreshReads() ExportOption {
	return func(s *ExportService) { s.freshReads = true }
}

func WithExportMetrics(m *metrics.Metrics) ExportOption {
	return func(s *ExportService) { s.metrics = m }
}

func WithExportClock(now func() time.Time) ExportOption {
	return func(s *ExportService) { s.now = now }
}

// ExportService renders selections of the collection and delivers them,
// either synchronously or as tasks.
type ExportService struct {
	source       ExpenseSource
	exporter     *export.Exporter
	destinations *destination.Set
	runner       *worker.Runner
	history      *ExportHistory
	publisher    ExportPublisher
	freshReads   bool
	logger       *log.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewExportService(source ExpenseSource, exporter *export.Exporter, dests *destination.Set, runner *worker.Runner, history *ExportHistory, logger *log.Logger, opts ...ExportOption) *ExportService {
	if logger == nil {
		logger = log.Discard()
	}
	s := &ExportService{
		source:       source,
		exporter:     exporter,
		destinations: dests,
		runner:       runner,
		history:      history,
		logger:       logger.WithComponent(log.ComponentExport),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type plan struct {
	template export.Template
	format   export.Format
	start    core.Date
	end      core.Date
}

func parseRequest(req core.ExportRequest) (plan, error) {
	var p plan
	var err error
	if p.template, err = export.ParseTemplate(req.Template); err != nil {
		return plan{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if p.format, err = export.ParseFormat(req.Format); err != nil {
		return plan{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if p.template != export.TemplateCustom && p.format == export.FormatPDF {
		return plan{}, fmt.Errorf("%w: %w", ErrInvalidRequest, export.ErrUnsupportedFormat)
	}
	if req.Start != "" {
		if p.start, err = core.ParseDate(req.Start); err != nil {
			return plan{}, fmt.Errorf("%w: start: %w", ErrInvalidRequest, err)
		}
	}
	if req.End != "" {
		if p.end, err = core.ParseDate(req.End); err != nil {
			return plan{}, fmt.Errorf("%w: end: %w", ErrInvalidRequest, err)
		}
	}
	return p, nil
}

func (s *ExportService) selectFor(p plan, req core.ExportRequest) []core.Expense {
	records := s.source.All()
	if req.Categories == nil {
		return aggregator.Filter(records, aggregator.Criteria{Start: p.start, End: p.end, Category: core.AllCategories})
	}
	return aggregator.SelectForExport(records, aggregator.Selection{Start: p.start, End: p.end, Categories: req.Categories})
}

// Build renders a request synchronously. An empty selection fails with
// ErrNothingToExport.
func (s *ExportService) Build(ctx context.Context, req core.ExportRequest) (export.Document, error) {
	p, err := parseRequest(req)
	if err != nil {
		return export.Document{}, err
	}
	doc, err := s.build(ctx, p, req)
	status := string(core.StatusCompleted)
	if err != nil {
		status = string(core.StatusFailed)
	}
	s.metrics.ObserveExport(string(p.format), string(p.template), status, doc.Size())
	if err != nil {
		return export.Document{}, err
	}

	log.NewStructuredLogger(s.logger).LogExportProduced(ctx, string(doc.Format), doc.Filename, doc.Records, doc.Size())
	return doc, nil
}

func (s *ExportService) build(ctx context.Context, p plan, req core.ExportRequest) (export.Document, error) {
	records := s.selectFor(p, req)
	if len(records) == 0 {
		return export.Document{}, ErrNothingToExport
	}
	doc, err := s.exporter.Render(ctx, p.template, p.format, records, req.Filename)
	if err != nil {
		return export.Document{}, fmt.Errorf("render %s export: %w", p.format, err)
	}
	return doc, nil
}

// Submit queues a request for delivery. With a publisher the request goes
// to the worker queue and a pending record is returned; otherwise it runs
// in this process.
func (s *ExportService) Submit(ctx context.Context, req core.ExportRequest) (core.ExportRecord, error) {
	rec, err := s.newRecord(uuid.NewString(), req)
	if err != nil {
		return core.ExportRecord{}, err
	}

	if s.publisher == nil {
		return s.run(rec, req).Record(), nil
	}

	if err := s.history.RecordExport(ctx, rec); err != nil {
		return core.ExportRecord{}, err
	}
	if err := s.publisher.PublishExportRequest(ctx, amqp.NewExportRequestMessage(rec.ID, req)); err != nil {
		rec.Status = core.StatusFailed
		rec.Error = err.Error()
		if herr := s.history.RecordExport(ctx, rec); herr != nil {
			s.logger.ErrorContext(ctx, "Failed to record publish failure", log.FieldTaskID, rec.ID, log.FieldError, herr)
		}
		return core.ExportRecord{}, fmt.Errorf("queue export: %w", err)
	}
	return rec, nil
}

// SubmitWithID runs a request in this process under the given task ID.
func (s *ExportService) SubmitWithID(_ context.Context, id string, req core.ExportRequest) (*worker.Task, error) {
	rec, err := s.newRecord(id, req)
	if err != nil {
		return nil, err
	}
	return s.run(rec, req), nil
}

// RunSchedule exports the whole collection for a backup schedule.
func (s *ExportService) RunSchedule(_ context.Context, sched core.BackupSchedule) (*worker.Task, error) {
	req := core.ExportRequest{
		Template:    sched.Template,
		Format:      sched.Format,
		Filename:    fmt.Sprintf("backup-%s", s.now().UTC().Format("2006-01-02-150405")),
		Destination: sched.Destination,
	}
	rec, err := s.newRecord(uuid.NewString(), req)
	if err != nil {
		return nil, err
	}
	rec.ScheduleID = sched.ID
	return s.run(rec, req), nil
}

func (s *ExportService) newRecord(id string, req core.ExportRequest) (core.ExportRecord, error) {
	p, err := parseRequest(req)
	if err != nil {
		return core.ExportRecord{}, err
	}
	dest, err := s.destinations.Get(req.Destination)
	if err != nil {
		return core.ExportRecord{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	reqCopy := req
	return core.ExportRecord{
		ID:          id,
		Timestamp:   s.now().UTC(),
		Template:    string(p.template),
		Format:      string(p.format),
		Status:      core.StatusPending,
		Destination: dest.Name(),
		Request:     &reqCopy,
	}, nil
}

func (s *ExportService) run(rec core.ExportRecord, req core.ExportRequest) *worker.Task {
	return s.runner.Submit(rec, func(ctx context.Context) (worker.Outcome, error) {
		if s.freshReads {
			if err := s.source.Reload(ctx); err != nil {
				return worker.Outcome{}, err
			}
		}
		p, err := parseRequest(req)
		if err != nil {
			return worker.Outcome{}, err
		}
		doc, err := s.build(ctx, p, req)
		if err != nil {
			return worker.Outcome{}, err
		}
		dest, err := s.destinations.Get(rec.Destination)
		if err != nil {
			return worker.Outcome{}, err
		}
		ref, err := dest.Deliver(ctx, doc)
		if err != nil {
			s.metrics.IncDestinationError(dest.Name())
			return worker.Outcome{}, fmt.Errorf("deliver to %s: %w", dest.Name(), err)
		}
		return worker.Outcome{Ref: ref, FileName: doc.Filename, FileSize: doc.Size(), Records: doc.Records}, nil
	})
}

// History lists recorded exports, newest first.
func (s *ExportService) History(ctx context.Context) ([]core.ExportRecord, error) {
	return s.history.List(ctx)
}

// Get prefers the live state of a task running in this process.
func (s *ExportService) Get(ctx context.Context, id string) (core.ExportRecord, error) {
	if t, ok := s.runner.Get(id); ok {
		return t.Record(), nil
	}
	return s.history.Get(ctx, id)
}

// Cancel stops a pending or processing task of this process.
func (s *ExportService) Cancel(ctx context.Context, id string) error {
	if s.runner.Cancel(id) {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("export %s: %w", id, ErrNotCancellable)
}

// Retry resubmits the request of a failed or cancelled export as a new one.
func (s *ExportService) Retry(ctx context.Context, id string) (core.ExportRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return core.ExportRecord{}, err
	}
	if rec.Request == nil || (rec.Status != core.StatusFailed && rec.Status != core.StatusCancelled) {
		return core.ExportRecord{}, fmt.Errorf("export %s (%s): %w", id, rec.Status, ErrNotRetryable)
	}
	return s.Submit(ctx, *rec.Request)
}

// DefaultDestination names the destination used when a request leaves it blank.
func (s *ExportService) DefaultDestination() string {
	return s.destinations.Default()
}

// Destinations lists the configured destination names.
func (s *ExportService) Destinations() []string {
	return s.destinations.Names()
}
