package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensekeeper/internal/budget"
	"expensekeeper/internal/core"
	"expensekeeper/internal/preferences"
	"expensekeeper/internal/storage"
)

func TestJSONResponseBuilder_Write(t *testing.T) {
	t.Run("payload", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewJSONResponse().
			Status(http.StatusCreated).
			Header("X-Test", "1").
			Data(map[string]int{"id": 3}).
			Write(rec)

		if rec.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q", got)
		}
		if rec.Header().Get("X-Test") != "1" {
			t.Error("custom header missing")
		}
		var body map[string]int
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["id"] != 3 {
			t.Errorf("body = %s, err = %v", rec.Body.String(), err)
		}
	})

	t.Run("no payload", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewJSONResponse().Status(http.StatusNoContent).Write(rec)
		if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
			t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
		}
	})
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", fmt.Errorf("find: %w", storage.ErrNotFound), http.StatusNotFound, "not_found"},
		{"empty vendor", core.ErrEmptyVendor, http.StatusBadRequest, "invalid_request"},
		{"too long", fmt.Errorf("%w: item", core.ErrTooLong), http.StatusBadRequest, "invalid_request"},
		{"negative budget", budget.ErrNegativeBudget, http.StatusBadRequest, "invalid_request"},
		{"theme", preferences.ErrInvalidTheme, http.StatusBadRequest, "invalid_request"},
		{"parser", badRequest("nope"), http.StatusBadRequest, "invalid_request"},
		{"store failure", errors.New("disk I/O error"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ErrorFor(tt.err).Write(rec)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var env errorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tt.wantBody {
				t.Errorf("code = %q, want %q", env.Error.Code, tt.wantBody)
			}
			if tt.wantCode == http.StatusInternalServerError && env.Error.Message != "internal error" {
				t.Errorf("internal details leaked: %q", env.Error.Message)
			}
		})
	}
}

func TestToExpenseResponse(t *testing.T) {
	date := time.Date(2024, 6, 5, 22, 30, 0, 0, time.UTC)
	rec, err := core.RecurrenceFor(core.RecurrenceWeekly, date)
	if err != nil {
		t.Fatal(err)
	}
	e := core.Expense{
		ID:         4,
		VendorName: "Gym",
		ItemBought: "Membership",
		Amount:     decimal.RequireFromString("30"),
		Date:       date,
		Category:   core.CategoryHealth,
		Recurrence: rec,
	}

	got := toExpenseResponse(e, testLoc)
	if got.Amount != "30.00" {
		t.Errorf("amount = %q, want 30.00", got.Amount)
	}
	// 22:30 UTC is already the next day two hours east.
	if got.Date != "2024-06-06" {
		t.Errorf("date = %q, want 2024-06-06", got.Date)
	}
	if !got.Recurring || got.Recurrence != "WEEKLY" || got.RecurrenceAnchor != int(time.Wednesday) {
		t.Errorf("recurrence fields = %v %q %d", got.Recurring, got.Recurrence, got.RecurrenceAnchor)
	}
	if got.Tags == nil {
		t.Error("tags should encode as an empty list")
	}

	plain := toExpenseResponse(core.Expense{Date: date}, time.UTC)
	if plain.Recurrence != "NONE" || plain.Recurring {
		t.Errorf("plain recurrence = %q", plain.Recurrence)
	}
}

func TestToBudgetResponse(t *testing.T) {
	s := budget.Status{
		Month:          "2024-06",
		Budget:         decimal.NewFromInt(1000),
		Spent:          decimal.NewFromInt(850),
		Remaining:      decimal.NewFromInt(150),
		Progress:       decimal.RequireFromString("0.85"),
		Tier:           budget.TierWarning,
		DaysLeft:       16,
		DailyRemaining: decimal.RequireFromString("9.375"),
	}
	got := toBudgetResponse(s)
	if got.Tier != "warning" || got.Progress != "0.85" || got.DailyRemaining != "9.38" {
		t.Errorf("unexpected budget response: %+v", got)
	}
}
