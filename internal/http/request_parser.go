// Package http exposes the expense engine as a JSON API.
//
// This file holds the helpers that turn query strings and request bodies
// into domain values, so handlers stay focused on orchestration.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// errBadRequest marks input the client must fix.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// parseDate accepts YYYY-MM-DD, read in loc, or a full RFC 3339 timestamp.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(DateLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, badRequest("invalid date %q: use %s", value, DateLayout)
	}
	return t.In(loc), nil
}

// parseDateParam returns fallback when the parameter is absent.
func parseDateParam(query url.Values, key string, loc *time.Location, fallback time.Time) (time.Time, error) {
	value := strings.TrimSpace(query.Get(key))
	if value == "" {
		return fallback, nil
	}
	return parseDate(value, loc)
}

func parseIntParam(query url.Values, key string, fallback int) (int, error) {
	value := strings.TrimSpace(query.Get(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0, badRequest("invalid %s %q", key, value)
	}
	return parsed, nil
}

func parseIDParam(r *http.Request, key string) (int64, error) {
	raw := chi.URLParam(r, key)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

// ParseRange reads the period selection shared by listing, statistics and
// streaming endpoints: either from/to for a custom range, or period plus an
// optional reference date. With neither, the current month is used. Custom
// bounds cover whole days.
func ParseRange(query url.Values, cal period.Calendar, now time.Time) (period.Kind, period.Range, error) {
	loc := cal.Location()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))
	if from != "" || to != "" {
		if from == "" || to == "" {
			return "", period.Range{}, badRequest("from and to must be given together")
		}
		a, err := parseDate(from, loc)
		if err != nil {
			return "", period.Range{}, err
		}
		b, err := parseDate(to, loc)
		if err != nil {
			return "", period.Range{}, err
		}
		r := cal.Custom(a, b)
		return period.Custom, period.Range{Start: cal.StartOfDay(r.Start), End: cal.EndOfDay(r.End)}, nil
	}

	kind := period.Month
	if v := strings.TrimSpace(query.Get("period")); v != "" {
		k, err := period.ParseKind(v)
		if err != nil {
			return "", period.Range{}, badRequest("%v", err)
		}
		kind = k
	}
	if kind == period.Custom {
		return "", period.Range{}, badRequest("custom period needs from and to")
	}
	ref, err := parseDateParam(query, "date", loc, now)
	if err != nil {
		return "", period.Range{}, err
	}
	r, err := cal.For(kind, ref)
	if err != nil {
		return "", period.Range{}, badRequest("%v", err)
	}
	return kind, r, nil
}

// decodeJSON reads a single JSON object and rejects unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(body) > maxBodyBytes {
		return badRequest("body too large")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid json body: %v", err)
	}
	return nil
}

// flexAmount accepts an amount as a JSON string ("12,50") or number (12.5).
type flexAmount string

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = flexAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = flexAmount(n.String())
	return nil
}

type expenseRequest struct {
	VendorName string     `json:"vendor_name"`
	ItemBought string     `json:"item_bought"`
	Amount     flexAmount `json:"amount"`
	Date       string     `json:"date"`
	Category   string     `json:"category"`
	Recurrence string     `json:"recurrence"`
	Notes      string     `json:"notes"`
	Tags       []string   `json:"tags"`
}

// toExpense validates the wire fields that need parsing. A missing date means
// now; the recurrence anchor comes from the expense date.
func (req expenseRequest) toExpense(id int64, loc *time.Location, now time.Time) (core.Expense, error) {
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.Expense{}, err
	}
	date := now.In(loc)
	if strings.TrimSpace(req.Date) != "" {
		if date, err = parseDate(req.Date, loc); err != nil {
			return core.Expense{}, err
		}
	}
	kind, err := core.ParseRecurrenceKind(req.Recurrence)
	if err != nil {
		return core.Expense{}, err
	}
	rec, err := core.RecurrenceFor(kind, date)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:         id,
		VendorName: sanitizeInput(req.VendorName),
		ItemBought: sanitizeInput(req.ItemBought),
		Amount:     amount,
		Date:       date,
		Category:   sanitizeInput(req.Category),
		Recurrence: rec,
		Notes:      sanitizeInput(req.Notes),
		Tags:       req.Tags,
	}, nil
}

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (req customerRequest) toCustomer(id int64) core.Customer {
	return core.Customer{
		ID:      id,
		Name:    sanitizeInput(req.Name),
		Email:   sanitizeInput(req.Email),
		Phone:   sanitizeInput(req.Phone),
		Address: sanitizeInput(req.Address),
		Notes:   sanitizeInput(req.Notes),
	}
}

type budgetRequest struct {
	Amount flexAmount `json:"amount"`
}

type preferencesRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Currency         string `json:"currency"`
	Theme            string `json:"theme"`
	RemindersEnabled bool   `json:"reminders_enabled"`
	BiometricLock    bool   `json:"biometric_lock"`
}

// sanitizeInput removes control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
