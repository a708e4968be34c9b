package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
)

// TrendMonths is how many months the trend series covers.
const TrendMonths = 6

type Query struct {
	Kind  period.Kind
	Range period.Range
	Tag   string
}

type Report struct {
	Kind          period.Kind
	Range         period.Range
	Tag           string
	Count         int
	Total         decimal.Decimal
	AveragePerDay decimal.Decimal
	Highest       *core.Expense
	TopCategory   *Share
	Categories    []Share
	TopTags       []Share
	Series        []Point
}

// Build computes the statistics screen for q. Summary, categories and series
// honour the tag filter. TopTags ranks tags across every expense in the
// period regardless of it.
func Build(cal period.Calendar, q Query, expenses []core.Expense) Report {
	inPeriod := Filter(expenses, q.Range, "")
	selected := inPeriod
	if q.Tag != "" {
		selected = Filter(inPeriod, q.Range, q.Tag)
	}

	total := Total(selected)
	rep := Report{
		Kind:          q.Kind,
		Range:         q.Range,
		Tag:           q.Tag,
		Count:         len(selected),
		Total:         total,
		AveragePerDay: AveragePerDay(total, q.Range),
		Categories:    nonNil(ByCategory(selected)),
		TopTags:       nonNil(ByTag(inPeriod, DefaultTopTags)),
		Series:        Series(selected, cal.Buckets(q.Kind, q.Range)),
	}
	if e, ok := Highest(selected); ok {
		rep.Highest = &e
	}
	if len(rep.Categories) > 0 {
		top := rep.Categories[0]
		rep.TopCategory = &top
	}
	return rep
}

// Trends returns monthly totals for the TrendMonths months ending with the
// month containing now.
func Trends(cal period.Calendar, now time.Time, expenses []core.Expense) []Point {
	return Series(expenses, cal.LastMonths(now, TrendMonths))
}

func nonNil(s []Share) []Share {
	if s == nil {
		return []Share{}
	}
	return s
}
