package http

import (
	"net/http"
	"strings"

	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
)

// handleListExpenses serves search, category and period listings. q and
// category take precedence over the period selection.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ctx := r.Context()

	var (
		items []core.Expense
		err   error
	)
	switch {
	case query.Has("q"):
		items, err = s.svc.Expenses.Search(ctx, query.Get("q"))
	case strings.TrimSpace(query.Get("category")) != "":
		items, err = s.svc.Expenses.ListByCategory(ctx, strings.TrimSpace(query.Get("category")))
	case query.Get("period") == "all":
		items, err = s.svc.Expenses.ListAll(ctx)
	default:
		var rng period.Range
		if _, rng, err = ParseRange(query, s.svc.Calendar, s.now()); err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		items, err = s.svc.Expenses.ListRange(ctx, rng)
	}
	if err != nil {
		s.fail(w, r, "list_expenses", err)
		return
	}
	NewJSONResponse().Data(toExpenseList(items, s.loc)).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e, err := s.svc.Expenses.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get_expense", err)
		return
	}
	NewJSONResponse().Data(toExpenseResponse(e, s.loc)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	s.saveExpense(w, r, 0, http.StatusCreated)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.saveExpense(w, r, id, http.StatusOK)
}

func (s *Server) saveExpense(w http.ResponseWriter, r *http.Request, id int64, status int) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e, err := req.toExpense(id, s.loc, s.now())
	if err != nil {
		s.fail(w, r, "parse_expense", err)
		return
	}
	saved, err := s.svc.Expenses.Save(r.Context(), e)
	if err != nil {
		s.fail(w, r, "save_expense", err)
		return
	}
	NewJSONResponse().Status(status).Data(toExpenseResponse(saved, s.loc)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.svc.Expenses.Delete(r.Context(), id); err != nil {
		s.fail(w, r, "delete_expense", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleDeleteAllExpenses needs confirm=true to guard against stray requests.
func (s *Server) handleDeleteAllExpenses(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		BadRequestError("deleting every expense requires confirm=true").Write(w)
		return
	}
	if err := s.svc.Expenses.DeleteAll(r.Context()); err != nil {
		s.fail(w, r, "delete_all_expenses", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Expenses.Recurring(r.Context())
	if err != nil {
		s.fail(w, r, "list_recurring", err)
		return
	}
	NewJSONResponse().Data(toExpenseList(items, s.loc)).Write(w)
}

// handleRunRecurring runs one materialization pass on demand. Failed items
// are reported in the body next to the counts.
func (s *Server) handleRunRecurring(w http.ResponseWriter, r *http.Request) {
	if s.svc.Recurring == nil {
		ErrorResponse(http.StatusNotImplemented, "not_configured", "recurring processor not configured").Write(w)
		return
	}
	res, err := s.svc.Recurring.ProcessDueExpenses(r.Context(), s.now())
	body := map[string]any{
		"checked": res.Checked,
		"due":     res.Due,
		"created": res.Created,
		"skipped": res.Skipped,
		"failed":  res.Failed,
	}
	status := http.StatusOK
	if err != nil {
		body["error"] = err.Error()
		status = http.StatusInternalServerError
	}
	NewJSONResponse().Status(status).Data(body).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Expenses.Categories(r.Context())
	if err != nil {
		s.fail(w, r, "list_categories", err)
		return
	}
	NewJSONResponse().Data(map[string][]string{"categories": cats}).Write(w)
}
