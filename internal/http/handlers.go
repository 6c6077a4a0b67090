package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.FormatUSD() },
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type indexData struct {
	Today        string
	Categories   []core.Category
	Destinations []string
	Default      string
	Summary      core.SummaryStatistics
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := s.expenses.Now()
	data := indexData{
		Today:        core.DateOf(now).String(),
		Categories:   s.expenses.Categories(),
		Destinations: s.exports.Destinations(),
		Default:      s.exports.DefaultDestination(),
		Summary:      s.summary(now),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", log.FieldError, err, "template", "index.html")
	}
}

// writeError maps service errors onto status codes. Anything unrecognised
// is logged and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationFailed(verr.Fields).Write(w)
	case errors.Is(err, services.ErrNothingToExport):
		UnprocessableEntityError("No expenses to export").Write(w)
	case errors.Is(err, services.ErrInvalidRequest), errors.Is(err, errBadQuery):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrUnknownCategory):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, core.ErrDuplicateCategory),
		errors.Is(err, services.ErrNotCancellable),
		errors.Is(err, services.ErrNotRetryable):
		ConflictError(err.Error()).Write(w)
	case errors.Is(err, core.ErrEmptyCategory):
		ValidationFailed(core.FieldErrors{core.FieldCategory: "Category is required"}).Write(w)
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, operation,
				log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
		InternalServerError("internal server error").Write(w)
	}
}
