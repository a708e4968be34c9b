package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensekeeper/internal/cache"
	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
	"expensekeeper/internal/services"
	"expensekeeper/internal/stats"
	"expensekeeper/internal/storage"
	"expensekeeper/internal/watch"
)

// openShared opens two repositories on one database file, the way the server
// and the recurring worker do.
func openShared(t *testing.T) (server, other *storage.SQLiteRepository) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "expenses.db")
	server, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })
	other, err = storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { other.Close() })
	return server, other
}

func bill(vendor, amount string, at time.Time, r core.Recurrence) core.Expense {
	return core.Expense{
		VendorName: vendor,
		ItemBought: "Service",
		Amount:     decimal.RequireFromString(amount),
		Date:       at,
		Category:   core.CategoryBills,
		Recurrence: r,
	}
}

func TestChangeWatcher_PublishesOnlyForOtherConnections(t *testing.T) {
	ctx := context.Background()
	server, other := openShared(t)
	broker := watch.NewBroker()
	w := NewChangeWatcher(server, broker)

	at := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, w.Poll(ctx))
	assert.Equal(t, uint64(0), broker.Version(), "first poll only records the baseline")

	_, err := server.Insert(ctx, bill("Own", "5", at, core.NoRecurrence()))
	require.NoError(t, err)
	require.NoError(t, w.Poll(ctx))
	assert.Equal(t, uint64(0), broker.Version(), "own writes are published by the writer")

	_, err = other.Insert(ctx, bill("Other", "5", at, core.NoRecurrence()))
	require.NoError(t, err)
	require.NoError(t, w.Poll(ctx))
	assert.Equal(t, uint64(1), broker.Version())

	require.NoError(t, w.Poll(ctx))
	assert.Equal(t, uint64(1), broker.Version())
}

type failingFeed struct{}

func (failingFeed) DataVersion(context.Context) (int64, error) {
	return 0, errors.New("database is closed")
}

func TestChangeWatcher_PropagatesFeedErrors(t *testing.T) {
	broker := watch.NewBroker()
	w := NewChangeWatcher(failingFeed{}, broker)
	assert.Error(t, w.Poll(context.Background()))
	assert.Equal(t, uint64(0), broker.Version())
}

func TestChangeWatcher_RefreshesReportsAfterWorkerPass(t *testing.T) {
	ctx := context.Background()
	server, workerStore := openShared(t)
	cal := period.NewCalendar(time.UTC, time.Monday)
	now := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

	_, err := server.Insert(ctx, bill("Utility Co", "30", now.AddDate(0, 0, -1), core.Daily()))
	require.NoError(t, err)

	broker := watch.NewBroker()
	statsSvc := services.NewStatsService(server, cal, broker,
		cache.NewLRUCache[stats.Report](8, time.Hour),
		cache.NewLRUCache[[]stats.Point](8, time.Hour))
	w := NewChangeWatcher(server, broker)
	require.NoError(t, w.Poll(ctx))

	q, err := statsSvc.Query(period.Month, now, "")
	require.NoError(t, err)
	sub := statsSvc.WatchReport(ctx, q)
	defer sub.Cancel()

	first := <-sub.Updates()
	assert.Equal(t, "30", first.Total.String())

	processor := services.NewRecurringProcessor(workerStore, cal, nil, nil, services.RecurringOptions{SameDayGuard: true})
	res, err := processor.ProcessDueExpenses(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)

	require.NoError(t, w.Poll(ctx))

	select {
	case next := <-sub.Updates():
		assert.Equal(t, "60", next.Total.String())
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not see the worker's insert")
	}

	rep, err := statsSvc.Report(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "60", rep.Total.String())
}

func TestRecurringPasses_DoNotDuplicateAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	server, workerStore := openShared(t)
	cal := period.NewCalendar(time.UTC, time.Monday)
	now := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

	_, err := server.Insert(ctx, bill("Utility Co", "30", now.AddDate(0, 0, -1), core.Daily()))
	require.NoError(t, err)

	opts := services.RecurringOptions{SameDayGuard: true}
	passes := []*services.RecurringProcessor{
		services.NewRecurringProcessor(server, cal, nil, nil, opts),
		services.NewRecurringProcessor(workerStore, cal, nil, nil, opts),
	}

	type outcome struct {
		res services.RunResult
		err error
	}
	results := make(chan outcome, len(passes))
	for _, p := range passes {
		go func(p *services.RecurringProcessor) {
			res, err := p.ProcessDueExpenses(ctx, now)
			results <- outcome{res, err}
		}(p)
	}

	created := 0
	for range passes {
		o := <-results
		require.NoError(t, o.err)
		created += o.res.Created
	}
	assert.Equal(t, 1, created)

	day := cal.Day(now)
	today, err := server.ListByDateRange(ctx, day.Start, day.End)
	require.NoError(t, err)
	assert.Len(t, today, 1)
}
