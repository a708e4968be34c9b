// Package budget derives progress signals from a standing monthly budget.
package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"expensekeeper/internal/period"
	"expensekeeper/internal/stats"
	"expensekeeper/internal/storage"
)

// SettingKey is where the budget lives in the settings table.
const SettingKey = "monthly_budget"

type Tier string

const (
	TierSafe    Tier = "safe"
	TierWarning Tier = "warning"
	TierOver    Tier = "over"
)

var warningThreshold = decimal.NewFromFloat(0.8)

var ErrNegativeBudget = errors.New("budget must not be negative")

// Progress is total/budget, or zero when no positive budget is set.
func Progress(total, budget decimal.Decimal) decimal.Decimal {
	if !budget.IsPositive() {
		return decimal.Zero
	}
	return total.Div(budget)
}

func TierFor(progress decimal.Decimal) Tier {
	switch {
	case progress.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return TierOver
	case progress.GreaterThanOrEqual(warningThreshold):
		return TierWarning
	default:
		return TierSafe
	}
}

// DaysLeft counts the days from day of month to the month end, today included.
func DaysLeft(daysInMonth, dayOfMonth int) int {
	return daysInMonth - dayOfMonth + 1
}

// DailyRemaining spreads what is left of the budget over the remaining days.
// It is zero when no days are left and negative once over budget.
func DailyRemaining(budget, total decimal.Decimal, daysLeft int) decimal.Decimal {
	if daysLeft <= 0 {
		return decimal.Zero
	}
	return budget.Sub(total).Div(decimal.NewFromInt(int64(daysLeft)))
}

type Status struct {
	Month          string
	Budget         decimal.Decimal
	Spent          decimal.Decimal
	Remaining      decimal.Decimal
	Progress       decimal.Decimal
	Tier           Tier
	DaysLeft       int
	DailyRemaining decimal.Decimal
}

// Evaluate computes the status of the month containing now.
func Evaluate(cal period.Calendar, now time.Time, budget, spent decimal.Decimal) Status {
	now = now.In(cal.Location())
	progress := Progress(spent, budget)
	daysLeft := DaysLeft(cal.DaysInMonth(now), now.Day())
	return Status{
		Month:          now.Format("2006-01"),
		Budget:         budget,
		Spent:          spent,
		Remaining:      budget.Sub(spent),
		Progress:       progress,
		Tier:           TierFor(progress),
		DaysLeft:       daysLeft,
		DailyRemaining: DailyRemaining(budget, spent, daysLeft),
	}
}

// Tracker persists the budget and reports on the current month.
type Tracker struct {
	settings storage.SettingsStore
	expenses storage.ExpenseStore
	cal      period.Calendar
	now      func() time.Time
}

func NewTracker(settings storage.SettingsStore, expenses storage.ExpenseStore, cal period.Calendar) *Tracker {
	return &Tracker{settings: settings, expenses: expenses, cal: cal, now: time.Now}
}

// Budget returns the stored budget, zero when none was ever set.
func (t *Tracker) Budget(ctx context.Context) (decimal.Decimal, error) {
	raw, ok, err := t.settings.GetSetting(ctx, SettingKey)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load budget: %w", err)
	}
	if !ok {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		slog.WarnContext(ctx, "Stored budget is not a number, treating as unset", "value", raw)
		return decimal.Zero, nil
	}
	return v, nil
}

func (t *Tracker) SetBudget(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeBudget
	}
	if err := t.settings.SetSetting(ctx, SettingKey, amount.StringFixed(2)); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	slog.InfoContext(ctx, "Monthly budget updated", "budget", amount.StringFixed(2))
	return nil
}

// Current reports on the month containing the tracker's clock.
func (t *Tracker) Current(ctx context.Context) (Status, error) {
	return t.At(ctx, t.now())
}

func (t *Tracker) At(ctx context.Context, now time.Time) (Status, error) {
	budget, err := t.Budget(ctx)
	if err != nil {
		return Status{}, err
	}
	month := t.cal.Month(now)
	expenses, err := t.expenses.ListByDateRange(ctx, month.Start, month.End)
	if err != nil {
		return Status{}, fmt.Errorf("load month expenses: %w", err)
	}
	return Evaluate(t.cal, now, budget, stats.Total(expenses)), nil
}
