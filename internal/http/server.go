package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/aggregator"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
	appweb "expensetracker/web"
)

// ExpenseService is the collection the API reads and mutates.
type ExpenseService interface {
	List(criteria aggregator.Criteria) []core.Expense
	Get(id string) (core.Expense, error)
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Summary(now time.Time) core.SummaryStatistics
	Insights(now time.Time) core.Insights
	CategorySeries() []core.CategoryAmount
	MonthlySeries() []core.MonthAmount
	Categories() []core.Category
	Registry() *core.Registry
	AddCategory(ctx context.Context, label string) (core.Category, error)
	RemoveCategory(ctx context.Context, label string) error
	Revision() uint64
	Now() time.Time
}

// ExportService renders downloads and manages export tasks.
type ExportService interface {
	Build(ctx context.Context, req core.ExportRequest) (export.Document, error)
	Submit(ctx context.Context, req core.ExportRequest) (core.ExportRecord, error)
	History(ctx context.Context) ([]core.ExportRecord, error)
	Get(ctx context.Context, id string) (core.ExportRecord, error)
	Cancel(ctx context.Context, id string) error
	Retry(ctx context.Context, id string) (core.ExportRecord, error)
	DefaultDestination() string
	Destinations() []string
}

// ScheduleService manages backup schedules.
type ScheduleService interface {
	ListSchedules(ctx context.Context) ([]core.BackupSchedule, error)
	CreateSchedule(ctx context.Context, in services.ScheduleInput) (core.BackupSchedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}

// Deps are the services behind the routes. Schedules, Ready and Metrics are
// optional.
type Deps struct {
	Expenses  ExpenseService
	Exports   ExportService
	Schedules ScheduleService
	Ready     func(ctx context.Context) error
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

// Options tunes the middleware stack.
type Options struct {
	RateLimitPerMinute int
	BlockSuspicious    bool
	TrustedProxies     []string
	SummaryCacheTTL    time.Duration
	// TemplatesFS overrides the embedded templates, mainly for tests.
	TemplatesFS fs.FS
}

func DefaultOptions() Options {
	return Options{
		RateLimitPerMinute: 60,
		SummaryCacheTTL:    5 * time.Minute,
	}
}

type Server struct {
	http.Server

	expenses  ExpenseService
	exports   ExportService
	schedules ScheduleService
	ready     func(ctx context.Context) error
	metrics   *metrics.Metrics
	logger    *log.Logger
	templates *template.Template

	// summaries are keyed by collection revision and month, so a write
	// makes every older entry unreachable.
	summaries *cache.LRUCache[core.SummaryStatistics]
	caches    *cache.Manager
	limiter   *ratelimit.Limiter
	detector  *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	if deps.Expenses == nil || deps.Exports == nil {
		return nil, errors.New("expense and export services are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.SummaryCacheTTL <= 0 {
		opts.SummaryCacheTTL = DefaultOptions().SummaryCacheTTL
	}

	detector, err := security.NewDetector(logger, opts.BlockSuspicious, opts.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("security detector: %w", err)
	}

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		expenses:  deps.Expenses,
		exports:   deps.Exports,
		schedules: deps.Schedules,
		ready:     deps.Ready,
		metrics:   deps.Metrics,
		logger:    logger.WithComponent(log.ComponentHTTP),
		summaries: cache.NewLRUCache[core.SummaryStatistics](32, opts.SummaryCacheTTL),
		caches:    cache.NewManager(logger),
		limiter:   ratelimit.NewLimiter(limitCfg),
		detector:  detector,
	}

	templatesFS := opts.TemplatesFS
	if templatesFS == nil {
		templatesFS = appweb.TemplatesFS
	}
	s.templates, err = template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
		s.templates = nil
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.caches.Register("summary", s.summaries)
	s.caches.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /api/expenses", s.handleClearExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("GET /api/charts/categories", s.handleCategoryChart)
	mux.HandleFunc("GET /api/charts/monthly", s.handleMonthlyChart)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("DELETE /api/categories/{name}", s.handleRemoveCategory)

	mux.HandleFunc("GET /export", s.handleExportDownload)
	mux.HandleFunc("GET /api/exports", s.handleListExports)
	mux.HandleFunc("POST /api/exports", s.handleSubmitExport)
	mux.HandleFunc("GET /api/exports/{id}", s.handleGetExport)
	mux.HandleFunc("DELETE /api/exports/{id}", s.handleCancelExport)
	mux.HandleFunc("POST /api/exports/{id}/retry", s.handleRetryExport)
	mux.HandleFunc("GET /api/destinations", s.handleListDestinations)

	mux.HandleFunc("GET /api/schedules", s.handleListSchedules)
	mux.HandleFunc("POST /api/schedules", s.handleCreateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", s.handleDeleteSchedule)
}

// middleware wraps mux outermost first: tracing, headers, scan detection,
// rate limiting, then metrics. Metrics must sit directly on the mux so the
// matched pattern is visible after serving.
func (s *Server) middleware(mux http.Handler) http.Handler {
	var h http.Handler = mux
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware(h)
	return h
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// summary serves month statistics from the cache when the collection has
// not changed since they were computed.
func (s *Server) summary(now time.Time) core.SummaryStatistics {
	key := fmt.Sprintf("%d:%s", s.expenses.Revision(), now.Format("2006-01"))
	if stats, ok := s.summaries.Get(key); ok {
		s.metrics.ObserveCache("summary", true)
		return stats
	}
	s.metrics.ObserveCache("summary", false)
	stats := s.expenses.Summary(now)
	s.summaries.Set(key, stats)
	return stats
}
