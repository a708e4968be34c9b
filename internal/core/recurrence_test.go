package core

import (
	"errors"
	"testing"
	"time"
)

func TestRecurrenceOccursOn(t *testing.T) {
	// 2024-01-15 is a Monday.
	anchor := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		kind RecurrenceKind
		day  time.Time
		want bool
	}{
		{"daily fires any day", RecurrenceDaily, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), true},
		{"weekly same weekday", RecurrenceWeekly, time.Date(2024, 1, 22, 7, 0, 0, 0, time.UTC), true},
		{"weekly other weekday", RecurrenceWeekly, time.Date(2024, 1, 23, 7, 0, 0, 0, time.UTC), false},
		{"monthly same day", RecurrenceMonthly, time.Date(2024, 2, 15, 23, 0, 0, 0, time.UTC), true},
		{"monthly other day", RecurrenceMonthly, time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC), false},
		{"none never fires", RecurrenceNone, anchor, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := RecurrenceFor(tt.kind, anchor)
			if err != nil {
				t.Fatalf("RecurrenceFor() error = %v", err)
			}
			if got := r.OccursOn(tt.day); got != tt.want {
				t.Errorf("OccursOn(%s) = %v, want %v", tt.day.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestMonthlyAnchoredOn31stSkipsShortMonths(t *testing.T) {
	r := Monthly(31)
	april := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	for d := april; d.Month() == time.April; d = d.AddDate(0, 0, 1) {
		if r.OccursOn(d) {
			t.Fatalf("monthly(31) fired on %s", d.Format("2006-01-02"))
		}
	}
	if !r.OccursOn(time.Date(2024, 5, 31, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("monthly(31) should fire on May 31")
	}
}

func TestRecurrenceFromStored(t *testing.T) {
	r, err := RecurrenceFromStored("WEEKLY", int(time.Friday))
	if err != nil || r.Kind() != RecurrenceWeekly || r.AnchorWeekday() != time.Friday {
		t.Fatalf("unexpected weekly: %v err=%v", r, err)
	}
	r, err = RecurrenceFromStored("", 0)
	if err != nil || r.IsRecurring() {
		t.Fatalf("expected none, got %v err=%v", r, err)
	}
	if _, err := RecurrenceFromStored("MONTHLY", 0); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("expected invalid recurrence for day 0, got %v", err)
	}
	if _, err := RecurrenceFromStored("YEARLY", 1); !errors.Is(err, ErrInvalidRecurrence) {
		t.Fatalf("expected invalid recurrence for unknown kind, got %v", err)
	}
}

func TestParseRecurrenceKind(t *testing.T) {
	for in, want := range map[string]RecurrenceKind{
		"daily": RecurrenceDaily, "Weekly": RecurrenceWeekly, "MONTHLY": RecurrenceMonthly,
		"": RecurrenceNone, "none": RecurrenceNone,
	} {
		got, err := ParseRecurrenceKind(in)
		if err != nil || got != want {
			t.Errorf("ParseRecurrenceKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseRecurrenceKind("biweekly"); err == nil {
		t.Error("expected error for biweekly")
	}
}
