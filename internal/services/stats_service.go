package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expensekeeper/internal/cache"
	"expensekeeper/internal/period"
	"expensekeeper/internal/stats"
	"expensekeeper/internal/storage"
	"expensekeeper/internal/watch"
)

// StatsService answers statistics queries. Reports are cached per data
// version, so any committed change invalidates them.
type StatsService struct {
	store   storage.ExpenseStore
	cal     period.Calendar
	broker  *watch.Broker
	reports cache.Cache[stats.Report]
	trends  cache.Cache[[]stats.Point]
	now     func() time.Time
}

// NewStatsService wires the service. A nil cache disables caching.
func NewStatsService(store storage.ExpenseStore, cal period.Calendar, broker *watch.Broker, reports cache.Cache[stats.Report], trends cache.Cache[[]stats.Point]) *StatsService {
	if broker == nil {
		broker = watch.NewBroker()
	}
	return &StatsService{
		store:   store,
		cal:     cal,
		broker:  broker,
		reports: reports,
		trends:  trends,
		now:     time.Now,
	}
}

func (s *StatsService) Calendar() period.Calendar { return s.cal }

// Query builds a query of kind around ref. Custom needs Range instead.
func (s *StatsService) Query(kind period.Kind, ref time.Time, tag string) (stats.Query, error) {
	r, err := s.cal.For(kind, ref)
	if err != nil {
		return stats.Query{}, err
	}
	return stats.Query{Kind: kind, Range: r, Tag: tag}, nil
}

// CustomQuery builds a custom query; swapped bounds are reordered.
func (s *StatsService) CustomQuery(from, to time.Time, tag string) stats.Query {
	return stats.Query{Kind: period.Custom, Range: s.cal.Custom(from, to), Tag: tag}
}

func (s *StatsService) Report(ctx context.Context, q stats.Query) (stats.Report, error) {
	key := fmt.Sprintf("%d|%s|%d|%d|%s", s.broker.Version(), q.Kind, q.Range.Start.UnixMilli(), q.Range.End.UnixMilli(), q.Tag)
	if s.reports != nil {
		if rep, ok := s.reports.Get(key); ok {
			return rep, nil
		}
	}

	expenses, err := s.store.ListByDateRange(ctx, q.Range.Start, q.Range.End)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load expenses for report", "period", q.Kind, "range", q.Range.String(), "error", err)
		return stats.Report{}, fmt.Errorf("load expenses: %w", err)
	}
	rep := stats.Build(s.cal, q, expenses)
	if s.reports != nil {
		s.reports.Set(key, rep)
	}
	return rep, nil
}

// Trends returns monthly totals for the last stats.TrendMonths months.
func (s *StatsService) Trends(ctx context.Context) ([]stats.Point, error) {
	now := s.now()
	months := s.cal.LastMonths(now, stats.TrendMonths)
	key := fmt.Sprintf("%d|%s", s.broker.Version(), months[len(months)-1].Start.Format("2006-01"))
	if s.trends != nil {
		if pts, ok := s.trends.Get(key); ok {
			return pts, nil
		}
	}

	expenses, err := s.store.ListByDateRange(ctx, months[0].Start, months[len(months)-1].End)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	pts := stats.Trends(s.cal, now, expenses)
	if s.trends != nil {
		s.trends.Set(key, pts)
	}
	return pts, nil
}

// WatchReport emits the report for q now and after every change.
func (s *StatsService) WatchReport(ctx context.Context, q stats.Query) *watch.Subscription[stats.Report] {
	return watch.Subscribe(ctx, s.broker, func(ctx context.Context) (stats.Report, error) {
		return s.Report(ctx, q)
	})
}
