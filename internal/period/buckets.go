package period

import (
	"strconv"
	"time"
)

// Bucket is one labeled sub-interval of a chart series.
type Bucket struct {
	Range
	Label string
}

// Granularity thresholds for custom ranges, in elapsed calendar days.
const (
	weekdayLabelMaxDays = 7
	dailyMaxDays        = 31
	fourMonthsMaxDays   = 120
)

// Buckets splits r into chart sub-intervals for kind.
//
// Week yields seven daily buckets, Month one bucket per day, Quarter three
// and Year twelve monthly buckets. Day and Custom ranges pick granularity by
// elapsed days: up to 7 daily buckets labeled by weekday, up to 31 daily
// buckets labeled by day of month, up to 120 at least four monthly buckets
// from the start month, otherwise at least twelve. Monthly custom series
// always extend to the month containing End.
func (c Calendar) Buckets(kind Kind, r Range) []Bucket {
	switch kind {
	case Week:
		return c.daily(r.Start, r.End, weekdayLabel)
	case Month:
		return c.daily(r.Start, r.End, dayLabel)
	case Quarter:
		return c.monthly(r.Start, 3)
	case Year:
		return c.monthly(r.Start, 12)
	default:
		return c.customBuckets(r)
	}
}

func (c Calendar) customBuckets(r Range) []Bucket {
	if r.End.Before(r.Start) {
		return nil
	}
	elapsed := daysBetween(r.Start.In(c.Location()), r.End.In(c.Location()))
	switch {
	case elapsed <= weekdayLabelMaxDays:
		return c.daily(r.Start, r.End, weekdayLabel)
	case elapsed <= dailyMaxDays:
		return c.daily(r.Start, r.End, dayLabel)
	case elapsed <= fourMonthsMaxDays:
		return c.monthly(r.Start, max(4, c.monthsTouched(r)))
	default:
		return c.monthly(r.Start, max(12, c.monthsTouched(r)))
	}
}

func (c Calendar) monthsTouched(r Range) int {
	from := r.Start.In(c.Location())
	to := r.End.In(c.Location())
	return (to.Year()-from.Year())*12 + int(to.Month()-from.Month()) + 1
}

// LastMonths returns n monthly buckets ending with the month containing ref.
func (c Calendar) LastMonths(ref time.Time, n int) []Bucket {
	if n <= 0 {
		return nil
	}
	first := c.Month(ref).Start.AddDate(0, -(n - 1), 0)
	return c.monthly(first, n)
}

func (c Calendar) daily(from, through time.Time, label func(time.Time) string) []Bucket {
	var out []Bucket
	for d := c.StartOfDay(from); !d.After(through); d = d.AddDate(0, 0, 1) {
		out = append(out, Bucket{
			Range: Range{Start: d, End: c.EndOfDay(d)},
			Label: label(d),
		})
	}
	return out
}

func (c Calendar) monthly(from time.Time, n int) []Bucket {
	first := c.Month(from).Start
	out := make([]Bucket, 0, n)
	for i := 0; i < n; i++ {
		m := c.Month(first.AddDate(0, i, 0))
		out = append(out, Bucket{Range: m, Label: m.Start.Format("Jan")})
	}
	return out
}

func weekdayLabel(t time.Time) string { return t.Format("Mon") }

func dayLabel(t time.Time) string { return strconv.Itoa(t.Day()) }
