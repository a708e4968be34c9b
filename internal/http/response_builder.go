// This file implements a small builder for JSON responses and the mapping
// from domain errors to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"expensekeeper/internal/budget"
	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
	"expensekeeper/internal/preferences"
	"expensekeeper/internal/stats"
	"expensekeeper/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Data(payload any) *JSONResponseBuilder {
	b.payload = payload
	return b
}

// Write sends the built response. A nil payload writes no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse creates a standard error envelope.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "invalid_request", message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal_error", "internal error")
}

var validationErrors = []error{
	errBadRequest,
	core.ErrEmptyVendor,
	core.ErrEmptyItem,
	core.ErrInvalidAmount,
	core.ErrEmptyCategory,
	core.ErrInvalidDate,
	core.ErrInvalidRecurrence,
	core.ErrTooLong,
	core.ErrEmptyCustomerName,
	core.ErrInvalidEmail,
	budget.ErrNegativeBudget,
	preferences.ErrInvalidTheme,
	preferences.ErrInvalidCurrency,
	preferences.ErrInvalidEmail,
}

// ErrorFor maps err to a response: validation failures are 400, missing
// records 404, everything else 500 with the details kept out of the body.
func ErrorFor(err error) *JSONResponseBuilder {
	if errors.Is(err, storage.ErrNotFound) {
		return NotFoundError("not found")
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return BadRequestError(err.Error())
		}
	}
	return InternalServerError()
}

type expenseResponse struct {
	ID               int64    `json:"id"`
	VendorName       string   `json:"vendor_name"`
	ItemBought       string   `json:"item_bought"`
	Amount           string   `json:"amount"`
	Date             string   `json:"date"`
	Timestamp        string   `json:"timestamp"`
	Category         string   `json:"category"`
	Recurring        bool     `json:"recurring"`
	Recurrence       string   `json:"recurrence"`
	RecurrenceAnchor int      `json:"recurrence_anchor,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	Tags             []string `json:"tags"`
}

func toExpenseResponse(e core.Expense, loc *time.Location) expenseResponse {
	kind := string(e.Recurrence.Kind())
	if kind == "" {
		kind = "NONE"
	}
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	local := e.Date.In(loc)
	return expenseResponse{
		ID:               e.ID,
		VendorName:       e.VendorName,
		ItemBought:       e.ItemBought,
		Amount:           core.FormatAmount(e.Amount),
		Date:             local.Format(DateLayout),
		Timestamp:        local.Format(time.RFC3339),
		Category:         e.Category,
		Recurring:        e.IsRecurring(),
		Recurrence:       kind,
		RecurrenceAnchor: e.Recurrence.Anchor(),
		Notes:            e.Notes,
		Tags:             tags,
	}
}

func toExpenseResponses(expenses []core.Expense, loc *time.Location) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e, loc))
	}
	return out
}

type expenseListResponse struct {
	Items []expenseResponse `json:"items"`
	Count int               `json:"count"`
	Total string            `json:"total"`
}

func toExpenseList(expenses []core.Expense, loc *time.Location) expenseListResponse {
	return expenseListResponse{
		Items: toExpenseResponses(expenses, loc),
		Count: len(expenses),
		Total: core.FormatAmount(stats.Total(expenses)),
	}
}

type rangeResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toRangeResponse(r period.Range) rangeResponse {
	return rangeResponse{Start: r.Start.Format(time.RFC3339), End: r.End.Format(time.RFC3339)}
}

type shareResponse struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

func toShares(shares []stats.Share) []shareResponse {
	out := make([]shareResponse, 0, len(shares))
	for _, s := range shares {
		out = append(out, shareResponse{Name: s.Name, Amount: core.FormatAmount(s.Amount)})
	}
	return out
}

type pointResponse struct {
	Label  string `json:"label"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Amount string `json:"amount"`
}

func toPoints(points []stats.Point) []pointResponse {
	out := make([]pointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, pointResponse{Label: p.Label, Start: p.Start, End: p.End, Amount: core.FormatAmount(p.Amount)})
	}
	return out
}

type reportResponse struct {
	Period        period.Kind      `json:"period"`
	Range         rangeResponse    `json:"range"`
	Tag           string           `json:"tag,omitempty"`
	Count         int              `json:"count"`
	Total         string           `json:"total"`
	AveragePerDay string           `json:"average_per_day"`
	Highest       *expenseResponse `json:"highest,omitempty"`
	TopCategory   *shareResponse   `json:"top_category,omitempty"`
	Categories    []shareResponse  `json:"categories"`
	TopTags       []shareResponse  `json:"top_tags"`
	Series        []pointResponse  `json:"series"`
}

func toReportResponse(rep stats.Report, loc *time.Location) reportResponse {
	out := reportResponse{
		Period:        rep.Kind,
		Range:         toRangeResponse(rep.Range),
		Tag:           rep.Tag,
		Count:         rep.Count,
		Total:         core.FormatAmount(rep.Total),
		AveragePerDay: core.FormatAmount(rep.AveragePerDay),
		Categories:    toShares(rep.Categories),
		TopTags:       toShares(rep.TopTags),
		Series:        toPoints(rep.Series),
	}
	if rep.Highest != nil {
		h := toExpenseResponse(*rep.Highest, loc)
		out.Highest = &h
	}
	if rep.TopCategory != nil {
		out.TopCategory = &shareResponse{Name: rep.TopCategory.Name, Amount: core.FormatAmount(rep.TopCategory.Amount)}
	}
	return out
}

type budgetResponse struct {
	Month          string `json:"month"`
	Budget         string `json:"budget"`
	Spent          string `json:"spent"`
	Remaining      string `json:"remaining"`
	Progress       string `json:"progress"`
	Tier           string `json:"tier"`
	DaysLeft       int    `json:"days_left"`
	DailyRemaining string `json:"daily_remaining"`
}

func toBudgetResponse(s budget.Status) budgetResponse {
	return budgetResponse{
		Month:          s.Month,
		Budget:         core.FormatAmount(s.Budget),
		Spent:          core.FormatAmount(s.Spent),
		Remaining:      core.FormatAmount(s.Remaining),
		Progress:       s.Progress.Round(4).String(),
		Tier:           string(s.Tier),
		DaysLeft:       s.DaysLeft,
		DailyRemaining: core.FormatAmount(s.DailyRemaining),
	}
}

type customerResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toCustomerResponse(c core.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

type preferencesResponse struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Currency         string `json:"currency"`
	CurrencyLabel    string `json:"currency_label"`
	Theme            string `json:"theme"`
	RemindersEnabled bool   `json:"reminders_enabled"`
	BiometricLock    bool   `json:"biometric_lock"`
}

func toPreferencesResponse(p preferences.Preferences) preferencesResponse {
	label := p.Currency
	if c, ok := preferences.LookupCurrency(p.Currency); ok {
		label = c.Label()
	}
	return preferencesResponse{
		Name:             p.Name,
		Email:            p.Email,
		Currency:         p.Currency,
		CurrencyLabel:    label,
		Theme:            string(p.Theme),
		RemindersEnabled: p.RemindersEnabled,
		BiometricLock:    p.BiometricLock,
	}
}

type tagCountResponse struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

type trendsResponse struct {
	Months []pointResponse `json:"months"`
}
