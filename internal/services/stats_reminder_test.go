package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensekeeper/internal/amqp"
	"expensekeeper/internal/cache"
	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
	"expensekeeper/internal/preferences"
	"expensekeeper/internal/stats"
	"expensekeeper/internal/storage/memory"
	"expensekeeper/internal/watch"
)

func seedJune(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []core.Expense{
		expense("Market", "50", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), core.NoRecurrence()),
		expense("Trattoria", "75", time.Date(2024, 6, 15, 20, 0, 0, 0, time.UTC), core.NoRecurrence()),
		expense("Rail", "50", time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC), core.NoRecurrence()),
	} {
		e.Category = core.CategoryFood
		if e.VendorName == "Rail" {
			e.Category = core.CategoryTravel
		}
		_, err := store.Insert(ctx, e)
		require.NoError(t, err)
	}
}

func TestStatsService_Report(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedJune(t, store)

	broker := watch.NewBroker()
	reports := cache.NewLRUCache[stats.Report](10, time.Minute)
	svc := NewStatsService(store, utcCalendar, broker, reports, nil)

	q, err := svc.Query(period.Month, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)

	rep, err := svc.Report(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "175", rep.Total.String())
	assert.Equal(t, 3, rep.Count)
	require.NotNil(t, rep.TopCategory)
	assert.Equal(t, core.CategoryFood, rep.TopCategory.Name)
	assert.Len(t, rep.Series, 30)

	_, err = svc.Report(ctx, q)
	require.NoError(t, err)
	hits, _ := reports.Stats()
	assert.Equal(t, uint64(1), hits)

	// A change moves the version, so the next report is recomputed.
	_, err = store.Insert(ctx, expense("Kiosk", "5", time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC), core.NoRecurrence()))
	require.NoError(t, err)
	broker.Publish()

	rep, err = svc.Report(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "180", rep.Total.String())
}

func TestStatsService_CustomQuerySwapsBounds(t *testing.T) {
	svc := NewStatsService(memory.New(), utcCalendar, nil, nil, nil)
	a := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	q := svc.CustomQuery(a, b, "")
	assert.True(t, q.Range.Start.Before(q.Range.End))

	_, err := svc.Query(period.Custom, a, "")
	assert.Error(t, err)
}

func TestStatsService_Trends(t *testing.T) {
	store := memory.New()
	seedJune(t, store)
	svc := NewStatsService(store, utcCalendar, nil, nil, cache.NewLRUCache[[]stats.Point](4, time.Minute))
	svc.now = func() time.Time { return time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC) }

	pts, err := svc.Trends(context.Background())
	require.NoError(t, err)
	require.Len(t, pts, stats.TrendMonths)
	assert.Equal(t, "Feb", pts[0].Label)
	assert.Equal(t, "Jun", pts[4].Label)
	assert.Equal(t, "175", pts[4].Amount.String())
	assert.True(t, pts[5].Amount.IsZero())
}

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) Notify(_ context.Context, title, body string) error {
	n.calls++
	return n.err
}

func TestReminderJob(t *testing.T) {
	ctx := context.Background()

	t.Run("sends when enabled", func(t *testing.T) {
		prefs := preferences.NewService(memory.New())
		n := &countingNotifier{}
		require.NoError(t, NewReminderJob(prefs, n).Run(ctx))
		assert.Equal(t, 1, n.calls)
	})

	t.Run("skips when disabled", func(t *testing.T) {
		prefs := preferences.NewService(memory.New())
		p := preferences.Defaults()
		p.RemindersEnabled = false
		_, err := prefs.Save(ctx, p)
		require.NoError(t, err)

		n := &countingNotifier{}
		require.NoError(t, NewReminderJob(prefs, n).Run(ctx))
		assert.Zero(t, n.calls)
	})

	t.Run("reports delivery failure", func(t *testing.T) {
		boom := errors.New("down")
		err := NewReminderJob(nil, &countingNotifier{err: boom}).Run(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("queue notifier publishes a reminder message", func(t *testing.T) {
		pub := &recordingPublisher{}
		require.NoError(t, NewReminderJob(nil, NewQueueNotifier(pub)).Run(ctx))
		msgs := pub.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, amqp.TypeReminder, msgs[0].Type)
		assert.Equal(t, ReminderTitle, msgs[0].Title)
		assert.Equal(t, ReminderBody, msgs[0].Body)
	})
}
