// Package period maps a reference instant and a period kind to a closed
// calendar interval, and splits intervals into labeled chart buckets.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects how a Range is derived from a reference instant.
type Kind string

const (
	Day     Kind = "day"
	Week    Kind = "week"
	Month   Kind = "month"
	Quarter Kind = "quarter"
	Year    Kind = "year"
	Custom  Kind = "custom"
)

// Kinds lists every supported kind.
var Kinds = []Kind{Day, Week, Month, Quarter, Year, Custom}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Range is a closed interval [Start, End].
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Days returns the whole days elapsed between Start and End plus one. The
// elapsed time is measured on the wall clock of Start's location so a DST
// shift does not add or drop a day. A range with zero or negative duration
// has 0 days.
func (r Range) Days() int {
	if !r.End.After(r.Start) {
		return 0
	}
	elapsed := wallClock(r.End.In(r.Start.Location())).Sub(wallClock(r.Start))
	return int(elapsed/(24*time.Hour)) + 1
}

func (r Range) String() string {
	return r.Start.Format(time.RFC3339) + ".." + r.End.Format(time.RFC3339)
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// daysBetween counts calendar dates from a to b, ignoring clock time and DST.
func daysBetween(a, b time.Time) int {
	from := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// Calendar holds the location and week convention that period math runs in.
type Calendar struct {
	loc      *time.Location
	firstDay time.Weekday
}

// NewCalendar returns a calendar for loc (UTC when nil) whose weeks begin on firstDay.
func NewCalendar(loc *time.Location, firstDay time.Weekday) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc, firstDay: firstDay}
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

func (c Calendar) FirstDayOfWeek() time.Weekday { return c.firstDay }

// StartOfDay returns 00:00:00.000 of t's date.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.Location())
}

// EndOfDay returns 23:59:59.999 of t's date.
func (c Calendar) EndOfDay(t time.Time) time.Time {
	t = t.In(c.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), c.Location())
}

// DaysInMonth returns the number of days in the month containing t.
func (c Calendar) DaysInMonth(t time.Time) int {
	t = t.In(c.Location())
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, c.Location()).Day()
}

func (c Calendar) Day(ref time.Time) Range {
	return Range{Start: c.StartOfDay(ref), End: c.EndOfDay(ref)}
}

// Week starts on the first day of week on or before ref and spans seven days.
func (c Calendar) Week(ref time.Time) Range {
	ref = ref.In(c.Location())
	offset := (int(ref.Weekday()) - int(c.firstDay) + 7) % 7
	start := c.StartOfDay(ref).AddDate(0, 0, -offset)
	return Range{Start: start, End: c.EndOfDay(start.AddDate(0, 0, 6))}
}

func (c Calendar) Month(ref time.Time) Range {
	ref = ref.In(c.Location())
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, c.Location())
	return Range{Start: start, End: c.EndOfDay(start.AddDate(0, 1, -1))}
}

// Quarter covers the three-month block (Jan, Apr, Jul, Oct) containing ref.
func (c Calendar) Quarter(ref time.Time) Range {
	ref = ref.In(c.Location())
	first := time.Month((int(ref.Month())-1)/3*3 + 1)
	start := time.Date(ref.Year(), first, 1, 0, 0, 0, 0, c.Location())
	return Range{Start: start, End: c.EndOfDay(start.AddDate(0, 3, -1))}
}

func (c Calendar) Year(ref time.Time) Range {
	ref = ref.In(c.Location())
	start := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, c.Location())
	return Range{Start: start, End: c.EndOfDay(time.Date(ref.Year(), time.December, 31, 0, 0, 0, 0, c.Location()))}
}

// Custom returns [a, b], swapping the bounds when a is after b.
func (c Calendar) Custom(a, b time.Time) Range {
	if a.After(b) {
		a, b = b, a
	}
	return Range{Start: a.In(c.Location()), End: b.In(c.Location())}
}

// For derives the range of kind around ref. Custom ranges need explicit
// bounds and are rejected here.
func (c Calendar) For(kind Kind, ref time.Time) (Range, error) {
	switch kind {
	case Day:
		return c.Day(ref), nil
	case Week:
		return c.Week(ref), nil
	case Month:
		return c.Month(ref), nil
	case Quarter:
		return c.Quarter(ref), nil
	case Year:
		return c.Year(ref), nil
	case Custom:
		return Range{}, fmt.Errorf("custom period requires explicit bounds")
	default:
		return Range{}, fmt.Errorf("unknown period %q", kind)
	}
}
