package budget

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
	"expensekeeper/internal/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTiers(t *testing.T) {
	tests := []struct {
		name   string
		budget string
		total  string
		want   Tier
	}{
		{"warning at 85 percent", "1000", "850", TierWarning},
		{"over at exactly budget", "1000", "1000", TierOver},
		{"warning at exactly 80 percent", "1000", "800", TierWarning},
		{"safe just below warning", "1000", "799.99", TierSafe},
		{"over when exceeded", "1000", "1500", TierOver},
		{"no budget is safe", "0", "500", TierSafe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TierFor(Progress(dec(tt.total), dec(tt.budget)))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgress(t *testing.T) {
	assert.True(t, Progress(dec("850"), dec("1000")).Equal(dec("0.85")))
	assert.True(t, Progress(dec("850"), dec("0")).IsZero())
	assert.True(t, Progress(dec("850"), dec("-5")).IsZero())
}

func TestDailyRemaining(t *testing.T) {
	// June 21st: 30 - 21 + 1 = 10 days left.
	left := DaysLeft(30, 21)
	assert.Equal(t, 10, left)
	assert.True(t, DailyRemaining(dec("1000"), dec("850"), left).Equal(dec("15")))
	assert.True(t, DailyRemaining(dec("1000"), dec("850"), 0).IsZero())
	assert.True(t, DailyRemaining(dec("1000"), dec("1100"), left).IsNegative())
}

func TestTrackerReportsCurrentMonth(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cal := period.NewCalendar(time.UTC, time.Monday)
	tr := NewTracker(store, store, cal)

	b, err := tr.Budget(ctx)
	require.NoError(t, err)
	assert.True(t, b.IsZero())

	require.NoError(t, tr.SetBudget(ctx, dec("1000")))
	assert.ErrorIs(t, tr.SetBudget(ctx, dec("-1")), ErrNegativeBudget)

	for _, e := range []struct {
		amount string
		at     time.Time
	}{
		{"600", time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)},
		{"250", time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)},
		{"999", time.Date(2024, 5, 31, 10, 0, 0, 0, time.UTC)},
	} {
		_, err := store.Insert(ctx, core.Expense{
			VendorName: "V", ItemBought: "I", Category: core.CategoryOther,
			Amount: dec(e.amount), Date: e.at,
		})
		require.NoError(t, err)
	}

	st, err := tr.At(ctx, time.Date(2024, 6, 21, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-06", st.Month)
	assert.True(t, st.Spent.Equal(dec("850")))
	assert.True(t, st.Progress.Equal(dec("0.85")))
	assert.Equal(t, TierWarning, st.Tier)
	assert.Equal(t, 10, st.DaysLeft)
	assert.True(t, st.DailyRemaining.Equal(dec("15")))
	assert.True(t, st.Remaining.Equal(dec("150")))
}

func TestTrackerIgnoresGarbageSetting(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.SetSetting(ctx, SettingKey, "lots"))
	tr := NewTracker(store, store, period.NewCalendar(time.UTC, time.Monday))
	b, err := tr.Budget(ctx)
	require.NoError(t, err)
	assert.True(t, b.IsZero())
}
