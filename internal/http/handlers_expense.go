package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

type expenseList struct {
	Expenses []core.Expense `json:"expenses"`
	Count    int            `json:"count"`
	Total    core.Money     `json:"total"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	criteria, err := ParseCriteria(r.URL.Query())
	if err == nil {
		criteria.Category, err = checkSelector(s.expenses.Registry(), criteria.Category)
	}
	if err != nil {
		s.writeError(w, r, err, log.OpList)
		return
	}
	items := s.expenses.List(criteria)
	var total core.Money
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	NewResponse().JSON(expenseList{Expenses: items, Count: len(items), Total: total}).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.expenses.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	NewResponse().JSON(e).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	e, err := s.expenses.Create(r.Context(), p.ExpenseInput())
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+e.ID).
		JSON(e).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	e, err := s.expenses.Update(r.Context(), r.PathValue("id"), p.ExpenseInput())
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	NewResponse().JSON(e).Write(w)
}

func (s *Server) handleClearExpenses(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.Clear(r.Context()); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkSelector resolves a history filter category; blank selects all.
func checkSelector(reg *core.Registry, c core.Category) (core.Category, error) {
	sel, err := reg.ValidateSelector(string(c))
	if err != nil {
		return "", fmt.Errorf("%w: category %q: %w", errBadQuery, c, err)
	}
	return sel, nil
}

// checkCategorySet resolves an export category set against the registry.
func checkCategorySet(reg *core.Registry, set []core.Category) ([]core.Category, error) {
	out, err := reg.ValidateSet(set)
	if err != nil {
		return nil, fmt.Errorf("%w: categories: %w", errBadQuery, err)
	}
	return out, nil
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string][]core.Category{"categories": s.expenses.Categories()}).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	label := p.Get("name")
	if label == "" {
		label = p.Get("category")
	}

	c, err := s.expenses.AddCategory(r.Context(), label)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		JSON(map[string]core.Category{"category": c}).
		Write(w)
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.RemoveCategory(r.Context(), r.PathValue("name")); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reportTime returns the reference time for month views. month=YYYY-MM
// selects another month; anything unparsable falls back to now.
func (s *Server) reportTime(r *http.Request) time.Time {
	now := s.expenses.Now()
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return now
	}
	t, err := time.Parse("2006-01", v)
	if err != nil {
		s.logger.DebugContext(r.Context(), "Ignoring invalid month parameter", "month", v)
		return now
	}
	return time.Date(t.Year(), t.Month(), 1, 12, 0, 0, 0, now.Location())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.summary(s.reportTime(r))).Write(w)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.expenses.Insights(s.reportTime(r))).Write(w)
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string][]core.CategoryAmount{"series": s.expenses.CategorySeries()}).Write(w)
}

func (s *Server) handleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string][]core.MonthAmount{"series": s.expenses.MonthlySeries()}).Write(w)
}
