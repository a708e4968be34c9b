package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"expensekeeper/internal/stats"
)

func (s *Server) statsQuery(r *http.Request) (stats.Query, error) {
	query := r.URL.Query()
	kind, rng, err := ParseRange(query, s.svc.Calendar, s.now())
	if err != nil {
		return stats.Query{}, err
	}
	return stats.Query{Kind: kind, Range: rng, Tag: strings.TrimSpace(query.Get("tag"))}, nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q, err := s.statsQuery(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rep, err := s.svc.Stats.Report(r.Context(), q)
	if err != nil {
		s.fail(w, r, "stats_report", err)
		return
	}
	NewJSONResponse().Data(toReportResponse(rep, s.loc)).Write(w)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	pts, err := s.svc.Stats.Trends(r.Context())
	if err != nil {
		s.fail(w, r, "stats_trends", err)
		return
	}
	NewJSONResponse().Data(trendsResponse{Months: toPoints(pts)}).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Budget.At(r.Context(), s.now())
	if err != nil {
		s.fail(w, r, "budget_status", err)
		return
	}
	NewJSONResponse().Data(toBudgetResponse(status)).Write(w)
}

// handleSetBudget accepts zero to clear the budget.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(string(req.Amount)), ",", "."))
	if err != nil {
		BadRequestError("invalid budget amount").Write(w)
		return
	}
	if err := s.svc.Budget.SetBudget(r.Context(), amount.Round(2)); err != nil {
		s.fail(w, r, "set_budget", err)
		return
	}
	s.handleGetBudget(w, r)
}
