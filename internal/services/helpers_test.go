package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"expensekeeper/internal/amqp"
	"expensekeeper/internal/core"
	"expensekeeper/internal/storage"
)

var errInsertFailed = errors.New("insert failed")

// failingStore rejects inserts for one vendor, inside transactions too.
type failingStore struct {
	storage.ExpenseStore
	vendor string
}

func (f *failingStore) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.VendorName == f.vendor {
		return core.Expense{}, errInsertFailed
	}
	return f.ExpenseStore.Insert(ctx, e)
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(storage.ExpenseStore) error) error {
	return f.ExpenseStore.WithinTx(ctx, func(tx storage.ExpenseStore) error {
		return fn(&failingStore{ExpenseStore: tx, vendor: f.vendor})
	})
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *amqp.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) messages() []*amqp.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.Message(nil), p.msgs...)
}

func expense(vendor, amount string, at time.Time, r core.Recurrence) core.Expense {
	return core.Expense{
		VendorName: vendor,
		ItemBought: "Item",
		Amount:     decimal.RequireFromString(amount),
		Date:       at,
		Category:   core.CategoryBills,
		Recurrence: r,
	}
}
