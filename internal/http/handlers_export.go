package http

import (
	"net/http"
	"strconv"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/security"
)

// handleExportDownload renders the selection synchronously and returns it
// as an attachment.
func (s *Server) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	req := ParseExportQuery(r.URL.Query())
	if req.Format == "" {
		req.Format = "csv"
	}

	var err error
	if req.Categories, err = checkCategorySet(s.expenses.Registry(), req.Categories); err != nil {
		s.writeError(w, r, err, log.OpExport)
		return
	}
	doc, err := s.exports.Build(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, log.OpExport)
		return
	}

	security.NoStore(w)
	NewResponse().
		Header("Content-Disposition", contentDisposition(doc.Filename)).
		Header("Content-Length", strconv.Itoa(doc.Size())).
		Body(doc.Body, doc.MIMEType).
		Write(w)
}

func (s *Server) handleSubmitExport(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	req, err := p.ExportRequest()
	if err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	if req.Categories, err = checkCategorySet(s.expenses.Registry(), req.Categories); err != nil {
		s.writeError(w, r, err, log.OpExport)
		return
	}

	rec, err := s.exports.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, log.OpExport)
		return
	}
	NewResponse().
		Status(http.StatusAccepted).
		Header("Location", "/api/exports/"+rec.ID).
		JSON(rec).
		Write(w)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	items, err := s.exports.History(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	if items == nil {
		items = []core.ExportRecord{}
	}
	NewResponse().JSON(map[string][]core.ExportRecord{"exports": items}).Write(w)
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.exports.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	NewResponse().JSON(rec).Write(w)
}

func (s *Server) handleCancelExport(w http.ResponseWriter, r *http.Request) {
	if err := s.exports.Cancel(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRetryExport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.exports.Retry(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, log.OpExport)
		return
	}
	NewResponse().
		Status(http.StatusAccepted).
		Header("Location", "/api/exports/"+rec.ID).
		JSON(rec).
		Write(w)
}

func (s *Server) handleListDestinations(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"destinations": s.exports.Destinations(),
		"default":      s.exports.DefaultDestination(),
	}).Write(w)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		NotFoundError("backups are not enabled").Write(w)
		return
	}
	items, err := s.schedules.ListSchedules(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	if items == nil {
		items = []core.BackupSchedule{}
	}
	NewResponse().JSON(map[string][]core.BackupSchedule{"schedules": items}).Write(w)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		NotFoundError("backups are not enabled").Write(w)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	sched, err := s.schedules.CreateSchedule(r.Context(), p.ScheduleInput())
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(sched).Write(w)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedules == nil {
		NotFoundError("backups are not enabled").Write(w)
		return
	}
	if err := s.schedules.DeleteSchedule(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
