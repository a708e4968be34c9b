package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensekeeper/internal/amqp"
	"expensekeeper/internal/core"
	"expensekeeper/internal/period"
	"expensekeeper/internal/storage"
	"expensekeeper/internal/watch"
)

// Mode selects how a materialization pass treats failures.
type Mode string

const (
	// ModePerItem inserts each copy on its own; failed items are reported
	// and successful ones stay.
	ModePerItem Mode = "per-item"
	// ModeAtomic runs the pass in one transaction; any failure rolls back
	// every copy of the pass.
	ModeAtomic Mode = "atomic"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModePerItem:
		return ModePerItem, nil
	case ModeAtomic:
		return ModeAtomic, nil
	default:
		return "", fmt.Errorf("unknown recurring mode %q (want %s or %s)", s, ModePerItem, ModeAtomic)
	}
}

const sourceRecurring = "recurring"

type RecurringOptions struct {
	Mode Mode
	// SameDayGuard skips an expense when a matching copy is already dated
	// today, making repeated passes on one day idempotent. Without it every
	// pass inserts again, as the Daily rule fires unconditionally.
	SameDayGuard bool
}

// RunResult summarizes one pass.
type RunResult struct {
	Checked int
	Due     int
	Created int
	Skipped int
	Failed  int
}

// RecurringProcessor materializes recurring expenses: for every recurring
// expense whose rule fires on the given day it inserts a copy dated at that
// instant. Copies keep the recurrence and are candidates on later passes.
type RecurringProcessor struct {
	store     storage.ExpenseStore
	cal       period.Calendar
	broker    *watch.Broker
	publisher Publisher
	opts      RecurringOptions
}

// NewRecurringProcessor wires the processor. broker and publisher may be nil.
func NewRecurringProcessor(store storage.ExpenseStore, cal period.Calendar, broker *watch.Broker, publisher Publisher, opts RecurringOptions) *RecurringProcessor {
	if opts.Mode == "" {
		opts.Mode = ModePerItem
	}
	return &RecurringProcessor{
		store:     store,
		cal:       cal,
		broker:    broker,
		publisher: publisher,
		opts:      opts,
	}
}

// ProcessDueExpenses runs one pass for the calendar day containing now. The
// context is checked between items; a cancelled pass stops early and reports
// the cancellation.
func (p *RecurringProcessor) ProcessDueExpenses(ctx context.Context, now time.Time) (RunResult, error) {
	if p.store == nil {
		return RunResult{}, fmt.Errorf("processor not properly initialized")
	}

	var (
		res     RunResult
		created []core.Expense
		err     error
	)
	switch p.opts.Mode {
	case ModeAtomic:
		err = p.store.WithinTx(ctx, func(tx storage.ExpenseStore) error {
			var passErr error
			res, created, passErr = p.pass(ctx, tx, now, true)
			return passErr
		})
		if err != nil {
			res.Created = 0
			created = nil
		}
	default:
		if !p.opts.SameDayGuard {
			res, created, err = p.pass(ctx, p.store, now, false)
			break
		}
		// The guard read and the inserts share one transaction so a
		// concurrent pass from another process cannot slip in between.
		// Failed items still leave the successful ones committed.
		txErr := p.store.WithinTx(ctx, func(tx storage.ExpenseStore) error {
			res, created, err = p.pass(ctx, tx, now, false)
			return nil
		})
		if txErr != nil {
			res.Created = 0
			created = nil
			err = errors.Join(err, txErr)
		}
	}

	if len(created) > 0 {
		if p.broker != nil {
			p.broker.Publish()
		}
		for _, e := range created {
			publishChange(ctx, p.publisher, amqp.TypeExpenseCreated, e.ID, sourceRecurring)
		}
	}

	attrs := []any{
		"date", now.In(p.cal.Location()).Format("2006-01-02"),
		"mode", p.opts.Mode,
		"checked", res.Checked,
		"due", res.Due,
		"created", res.Created,
		"skipped", res.Skipped,
		"failed", res.Failed,
	}
	if err != nil {
		slog.ErrorContext(ctx, "Recurring expense pass failed", append(attrs, "error", err)...)
		return res, err
	}
	slog.InfoContext(ctx, "Recurring expense pass complete", attrs...)
	return res, nil
}

// pass evaluates every recurring expense once. With stopOnError the first
// failure aborts the pass; otherwise failures are collected.
func (p *RecurringProcessor) pass(ctx context.Context, store storage.ExpenseStore, now time.Time, stopOnError bool) (RunResult, []core.Expense, error) {
	var res RunResult

	candidates, err := store.ListRecurring(ctx)
	if err != nil {
		return res, nil, fmt.Errorf("failed to get recurring expenses: %w", err)
	}

	day := p.cal.Day(now)
	var today []core.Expense
	if p.opts.SameDayGuard {
		today, err = store.ListByDateRange(ctx, day.Start, day.End)
		if err != nil {
			return res, nil, fmt.Errorf("failed to get today's expenses: %w", err)
		}
	}

	local := now.In(p.cal.Location())
	var (
		created []core.Expense
		errs    []error
	)
	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("pass interrupted after %d of %d expenses: %w", res.Checked, len(candidates), err))
			break
		}
		res.Checked++

		if !e.Recurrence.OccursOn(local) {
			continue
		}
		res.Due++

		if p.opts.SameDayGuard && alreadyMaterialized(e, today) {
			res.Skipped++
			slog.DebugContext(ctx, "Recurring expense already materialized today", "recurring_id", e.ID)
			continue
		}

		saved, err := store.Insert(ctx, e.Materialize(now))
		if err != nil {
			res.Failed++
			err = fmt.Errorf("materialize expense %d: %w", e.ID, err)
			slog.ErrorContext(ctx, "Failed to create expense from recurring expense",
				"recurring_id", e.ID,
				"vendor", e.VendorName,
				"error", err)
			if stopOnError {
				return res, nil, err
			}
			errs = append(errs, err)
			continue
		}

		res.Created++
		created = append(created, saved)
		today = append(today, saved)
		slog.InfoContext(ctx, "Created expense from recurring expense",
			"recurring_id", e.ID,
			"id", saved.ID,
			"vendor", saved.VendorName,
			"amount", core.FormatAmount(saved.Amount),
			"recurrence", e.Recurrence.String())
	}

	if len(errs) > 0 {
		if stopOnError {
			return res, nil, errors.Join(errs...)
		}
		return res, created, errors.Join(errs...)
	}
	return res, created, nil
}

// alreadyMaterialized reports whether today holds an expense with the same
// vendor, item, amount, category and recurrence kind as e.
func alreadyMaterialized(e core.Expense, today []core.Expense) bool {
	for _, t := range today {
		if t.VendorName == e.VendorName &&
			t.ItemBought == e.ItemBought &&
			t.Amount.Equal(e.Amount) &&
			t.Category == e.Category &&
			t.Recurrence.Kind() == e.Recurrence.Kind() {
			return true
		}
	}
	return false
}
