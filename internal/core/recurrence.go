package core

import (
	"fmt"
	"strings"
	"time"
)

// RecurrenceKind names a recurrence variant. The string values are the
// persisted and wire representation.
type RecurrenceKind string

const (
	RecurrenceNone    RecurrenceKind = ""
	RecurrenceDaily   RecurrenceKind = "DAILY"
	RecurrenceWeekly  RecurrenceKind = "WEEKLY"
	RecurrenceMonthly RecurrenceKind = "MONTHLY"
)

// ParseRecurrenceKind accepts the kind names case-insensitively. Empty and
// "none" map to RecurrenceNone.
func ParseRecurrenceKind(s string) (RecurrenceKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE":
		return RecurrenceNone, nil
	case string(RecurrenceDaily):
		return RecurrenceDaily, nil
	case string(RecurrenceWeekly):
		return RecurrenceWeekly, nil
	case string(RecurrenceMonthly):
		return RecurrenceMonthly, nil
	default:
		return RecurrenceNone, fmt.Errorf("%w: unknown kind %q", ErrInvalidRecurrence, s)
	}
}

// Recurrence is a closed variant: None, Daily, Weekly(weekday) or
// Monthly(day of month). The zero value is None. Values are built through
// the constructors only, so a recurring flag without a kind cannot exist.
type Recurrence struct {
	kind    RecurrenceKind
	weekday time.Weekday
	day     int
}

// NoRecurrence returns the None variant.
func NoRecurrence() Recurrence { return Recurrence{} }

// Daily returns the Daily variant.
func Daily() Recurrence { return Recurrence{kind: RecurrenceDaily} }

// Weekly returns the Weekly variant anchored on weekday.
func Weekly(weekday time.Weekday) Recurrence {
	return Recurrence{kind: RecurrenceWeekly, weekday: weekday}
}

// Monthly returns the Monthly variant anchored on a day of month (1-31).
func Monthly(day int) Recurrence {
	return Recurrence{kind: RecurrenceMonthly, day: day}
}

// RecurrenceFor builds the variant of kind anchored on the calendar date of anchor.
func RecurrenceFor(kind RecurrenceKind, anchor time.Time) (Recurrence, error) {
	switch kind {
	case RecurrenceNone:
		return NoRecurrence(), nil
	case RecurrenceDaily:
		return Daily(), nil
	case RecurrenceWeekly:
		return Weekly(anchor.Weekday()), nil
	case RecurrenceMonthly:
		return Monthly(anchor.Day()), nil
	default:
		return NoRecurrence(), fmt.Errorf("%w: unknown kind %q", ErrInvalidRecurrence, kind)
	}
}

func (r Recurrence) Kind() RecurrenceKind { return r.kind }

func (r Recurrence) IsRecurring() bool { return r.kind != RecurrenceNone }

// Anchor returns the variant payload: the weekday number for Weekly, the day
// of month for Monthly, 0 otherwise.
func (r Recurrence) Anchor() int {
	switch r.kind {
	case RecurrenceWeekly:
		return int(r.weekday)
	case RecurrenceMonthly:
		return r.day
	default:
		return 0
	}
}

// AnchorWeekday is only meaningful for Weekly.
func (r Recurrence) AnchorWeekday() time.Weekday { return r.weekday }

// AnchorDay is only meaningful for Monthly.
func (r Recurrence) AnchorDay() int { return r.day }

func (r Recurrence) Validate() error {
	switch r.kind {
	case RecurrenceNone, RecurrenceDaily:
		return nil
	case RecurrenceWeekly:
		if r.weekday < time.Sunday || r.weekday > time.Saturday {
			return fmt.Errorf("%w: weekday %d", ErrInvalidRecurrence, r.weekday)
		}
		return nil
	case RecurrenceMonthly:
		if r.day < 1 || r.day > 31 {
			return fmt.Errorf("%w: day of month %d", ErrInvalidRecurrence, r.day)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRecurrence, r.kind)
	}
}

// OccursOn reports whether day is an occurrence day. Daily always fires,
// Weekly on the anchor weekday, Monthly on the anchor day of month. A Monthly
// anchor the month does not have (31 in a 30-day month) does not fire that month.
func (r Recurrence) OccursOn(day time.Time) bool {
	switch r.kind {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		return day.Weekday() == r.weekday
	case RecurrenceMonthly:
		return day.Day() == r.day
	default:
		return false
	}
}

// RecurrenceFromStored rebuilds a variant from its persisted columns.
func RecurrenceFromStored(kind string, anchor int) (Recurrence, error) {
	k, err := ParseRecurrenceKind(kind)
	if err != nil {
		return NoRecurrence(), err
	}
	var r Recurrence
	switch k {
	case RecurrenceNone:
		r = NoRecurrence()
	case RecurrenceDaily:
		r = Daily()
	case RecurrenceWeekly:
		r = Weekly(time.Weekday(anchor))
	case RecurrenceMonthly:
		r = Monthly(anchor)
	}
	return r, r.Validate()
}

func (r Recurrence) String() string {
	switch r.kind {
	case RecurrenceWeekly:
		return fmt.Sprintf("%s(%s)", r.kind, r.weekday)
	case RecurrenceMonthly:
		return fmt.Sprintf("%s(%d)", r.kind, r.day)
	case RecurrenceNone:
		return "NONE"
	default:
		return string(r.kind)
	}
}
