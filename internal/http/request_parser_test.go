package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
)

var testLoc = time.FixedZone("CEST", 2*60*60)

func TestParseRange(t *testing.T) {
	cal := period.NewCalendar(testLoc, time.Monday)
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, testLoc)

	tests := []struct {
		name      string
		query     url.Values
		wantKind  period.Kind
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "defaults to current month",
			query:     url.Values{},
			wantKind:  period.Month,
			wantStart: time.Date(2024, 6, 1, 0, 0, 0, 0, testLoc),
			wantEnd:   time.Date(2024, 6, 30, 23, 59, 59, 999_000_000, testLoc),
		},
		{
			name:      "week around reference date",
			query:     url.Values{"period": {"week"}, "date": {"2024-06-12"}},
			wantKind:  period.Week,
			wantStart: time.Date(2024, 6, 10, 0, 0, 0, 0, testLoc),
			wantEnd:   time.Date(2024, 6, 16, 23, 59, 59, 999_000_000, testLoc),
		},
		{
			name:      "custom range swaps bounds",
			query:     url.Values{"from": {"2024-06-20"}, "to": {"2024-06-01"}},
			wantKind:  period.Custom,
			wantStart: time.Date(2024, 6, 1, 0, 0, 0, 0, testLoc),
			wantEnd:   time.Date(2024, 6, 20, 23, 59, 59, 999_000_000, testLoc),
		},
		{name: "from without to", query: url.Values{"from": {"2024-06-01"}}, wantErr: true},
		{name: "unknown period", query: url.Values{"period": {"fortnight"}}, wantErr: true},
		{name: "custom without bounds", query: url.Values{"period": {"custom"}}, wantErr: true},
		{name: "bad date", query: url.Values{"period": {"day"}, "date": {"15/06/2024"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, rng, err := ParseRange(tt.query, cal, now)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("ParseRange() error = %v, want bad request", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRange() error = %v", err)
			}
			if kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", kind, tt.wantKind)
			}
			if !rng.Start.Equal(tt.wantStart) || !rng.End.Equal(tt.wantEnd) {
				t.Errorf("range = %v, want %v .. %v", rng, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestFlexAmount(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"amount": "12,50"}`, "12,50"},
		{`{"amount": 12.5}`, "12.5"},
		{`{"amount": 7}`, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req budgetRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if string(req.Amount) != tt.want {
				t.Errorf("amount = %q, want %q", req.Amount, tt.want)
			}
		})
	}
}

func TestExpenseRequest_ToExpense(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 30, 0, 0, testLoc)

	t.Run("full request", func(t *testing.T) {
		req := expenseRequest{
			VendorName: "  Acme\x07 ",
			ItemBought: "Rent",
			Amount:     "1200,005",
			Date:       "2024-06-05",
			Category:   "Bills",
			Recurrence: "monthly",
			Tags:       []string{"home"},
		}
		e, err := req.toExpense(7, testLoc, now)
		if err != nil {
			t.Fatalf("toExpense() error = %v", err)
		}
		if e.ID != 7 || e.VendorName != "Acme" {
			t.Errorf("unexpected identity fields: %+v", e)
		}
		if !e.Amount.Equal(decimal.RequireFromString("1200.01")) {
			t.Errorf("amount = %v, want 1200.01", e.Amount)
		}
		if e.Recurrence.Kind() != core.RecurrenceMonthly || e.Recurrence.AnchorDay() != 5 {
			t.Errorf("recurrence = %v, want MONTHLY(5)", e.Recurrence)
		}
	})

	t.Run("missing date means now", func(t *testing.T) {
		e, err := expenseRequest{VendorName: "a", ItemBought: "b", Amount: "1", Category: "Food"}.toExpense(0, testLoc, now)
		if err != nil {
			t.Fatalf("toExpense() error = %v", err)
		}
		if !e.Date.Equal(now) {
			t.Errorf("date = %v, want %v", e.Date, now)
		}
		if e.IsRecurring() {
			t.Error("expense should not be recurring")
		}
	})

	errCases := []struct {
		name string
		req  expenseRequest
		want error
	}{
		{"negative amount", expenseRequest{Amount: "-4"}, core.ErrInvalidAmount},
		{"bad recurrence", expenseRequest{Amount: "4", Recurrence: "yearly"}, core.ErrInvalidRecurrence},
		{"bad date", expenseRequest{Amount: "4", Date: "yesterday"}, errBadRequest},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.toExpense(0, testLoc, now)
			if !errors.Is(err, tt.want) {
				t.Errorf("toExpense() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"Ada"}`, false},
		{"unknown field", `{"name":"Ada","admin":true}`, true},
		{"malformed", `{"name":`, true},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst customerRequest
			err := decodeJSON(r, &dst)
			if (err != nil) != tt.wantErr {
				t.Errorf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"a\x00b\x1bc", "abc"},
		{"line1\nline2\ttab", "line1\nline2\ttab"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
