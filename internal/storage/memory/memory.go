// Package memory is an in-process storage backend used by tests and by
// DATA_BACKEND=memory. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"expensekeeper/internal/core"
	"expensekeeper/internal/storage"
)

type Store struct {
	mu sync.Mutex
	st state
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: state{
		tags:     map[string]int64{},
		settings: map[string]string{},
	}}
}

type state struct {
	nextID     int64
	items      []core.Expense
	tags       map[string]int64
	settings   map[string]string
	nextCustID int64
	customers  []core.Customer
}

func (s *Store) Close() error { return nil }

func (s *Store) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.insert(ctx, e)
}

func (s *Store) Update(ctx context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.update(ctx, e)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.delete(ctx, id)
}

func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.deleteAll(ctx)
}

func (s *Store) FindByID(ctx context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.findByID(ctx, id)
}

func (s *Store) ListByDateRange(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listByDateRange(ctx, start, end)
}

func (s *Store) ListByCategory(ctx context.Context, category string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listByCategory(ctx, category)
}

func (s *Store) ListRecurring(ctx context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listRecurring(ctx)
}

func (s *Store) ListAll(ctx context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listAll(ctx)
}

func (s *Store) Search(ctx context.Context, text string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.search(ctx, text)
}

func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.distinctCategories(ctx)
}

// WithinTx holds the store lock for the whole of fn and restores the prior
// state when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(storage.ExpenseStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&txView{st: &s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) IncrementTags(_ context.Context, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tags {
		s.st.tags[t]++
	}
	return nil
}

func (s *Store) RemoveTag(_ context.Context, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.tags, tag)
	return nil
}

func (s *Store) TagCounts(_ context.Context) ([]storage.TagCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.TagCount, 0, len(s.st.tags))
	for t, c := range s.st.tags {
		out = append(out, storage.TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

func (s *Store) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.settings[key]
	return v, ok, nil
}

func (s *Store) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.settings[key] = value
	return nil
}

func (s *Store) InsertCustomer(_ context.Context, c core.Customer) (core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextCustID++
	now := time.Now().UTC()
	c.ID = s.st.nextCustID
	c.CreatedAt, c.UpdatedAt = now, now
	s.st.customers = append(s.st.customers, c)
	return c, nil
}

func (s *Store) UpdateCustomer(_ context.Context, c core.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.customers {
		if s.st.customers[i].ID == c.ID {
			c.CreatedAt = s.st.customers[i].CreatedAt
			c.UpdatedAt = time.Now().UTC()
			s.st.customers[i] = c
			return nil
		}
	}
	return fmt.Errorf("update customer %d: %w", c.ID, storage.ErrNotFound)
}

func (s *Store) DeleteCustomer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.customers {
		if s.st.customers[i].ID == id {
			s.st.customers = append(s.st.customers[:i], s.st.customers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete customer %d: %w", id, storage.ErrNotFound)
}

func (s *Store) FindCustomer(_ context.Context, id int64) (core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.st.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Customer{}, fmt.Errorf("get customer %d: %w", id, storage.ErrNotFound)
}

func (s *Store) ListCustomers(_ context.Context) ([]core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Customer(nil), s.st.customers...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// txView exposes the locked state to a WithinTx callback.
type txView struct {
	st *state
}

func (v *txView) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	return v.st.insert(ctx, e)
}

func (v *txView) Update(ctx context.Context, e core.Expense) error { return v.st.update(ctx, e) }

func (v *txView) Delete(ctx context.Context, id int64) error { return v.st.delete(ctx, id) }

func (v *txView) DeleteAll(ctx context.Context) error { return v.st.deleteAll(ctx) }

func (v *txView) FindByID(ctx context.Context, id int64) (core.Expense, error) {
	return v.st.findByID(ctx, id)
}

func (v *txView) ListByDateRange(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	return v.st.listByDateRange(ctx, start, end)
}

func (v *txView) ListByCategory(ctx context.Context, category string) ([]core.Expense, error) {
	return v.st.listByCategory(ctx, category)
}

func (v *txView) ListRecurring(ctx context.Context) ([]core.Expense, error) {
	return v.st.listRecurring(ctx)
}

func (v *txView) ListAll(ctx context.Context) ([]core.Expense, error) { return v.st.listAll(ctx) }

func (v *txView) Search(ctx context.Context, text string) ([]core.Expense, error) {
	return v.st.search(ctx, text)
}

func (v *txView) DistinctCategories(ctx context.Context) ([]string, error) {
	return v.st.distinctCategories(ctx)
}

func (v *txView) WithinTx(_ context.Context, fn func(storage.ExpenseStore) error) error {
	return fn(v)
}

func (st *state) clone() state {
	out := *st
	out.items = make([]core.Expense, len(st.items))
	for i, e := range st.items {
		out.items[i] = e.Clone()
	}
	out.tags = make(map[string]int64, len(st.tags))
	for k, v := range st.tags {
		out.tags[k] = v
	}
	out.settings = make(map[string]string, len(st.settings))
	for k, v := range st.settings {
		out.settings[k] = v
	}
	out.customers = append([]core.Customer(nil), st.customers...)
	return out
}

func (st *state) insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return core.Expense{}, err
	}
	st.nextID++
	e = e.Clone()
	e.ID = st.nextID
	st.items = append(st.items, e)
	return e.Clone(), nil
}

func (st *state) update(ctx context.Context, e core.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range st.items {
		if st.items[i].ID == e.ID {
			st.items[i] = e.Clone()
			return nil
		}
	}
	return fmt.Errorf("update expense %d: %w", e.ID, storage.ErrNotFound)
}

func (st *state) delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range st.items {
		if st.items[i].ID == id {
			st.items = append(st.items[:i], st.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete expense %d: %w", id, storage.ErrNotFound)
}

func (st *state) deleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.items = nil
	return nil
}

func (st *state) findByID(_ context.Context, id int64) (core.Expense, error) {
	for _, e := range st.items {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return core.Expense{}, fmt.Errorf("get expense %d: %w", id, storage.ErrNotFound)
}

func (st *state) listByDateRange(_ context.Context, start, end time.Time) ([]core.Expense, error) {
	return st.filter(func(e core.Expense) bool {
		return !e.Date.Before(start) && !e.Date.After(end)
	}, newestFirst), nil
}

func (st *state) listByCategory(_ context.Context, category string) ([]core.Expense, error) {
	return st.filter(func(e core.Expense) bool { return e.Category == category }, newestFirst), nil
}

func (st *state) listRecurring(_ context.Context) ([]core.Expense, error) {
	return st.filter(core.Expense.IsRecurring, byID), nil
}

func (st *state) listAll(_ context.Context) ([]core.Expense, error) {
	return st.filter(func(core.Expense) bool { return true }, newestFirst), nil
}

func (st *state) search(_ context.Context, text string) ([]core.Expense, error) {
	q := strings.ToLower(text)
	return st.filter(func(e core.Expense) bool {
		return strings.Contains(strings.ToLower(e.VendorName), q) ||
			strings.Contains(strings.ToLower(e.ItemBought), q) ||
			strings.Contains(strings.ToLower(e.Category), q) ||
			strings.Contains(strings.ToLower(e.Notes), q) ||
			strings.Contains(core.FormatAmount(e.Amount), q)
	}, newestFirst), nil
}

func (st *state) distinctCategories(_ context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range st.items {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (st *state) filter(keep func(core.Expense) bool, less func(a, b core.Expense) bool) []core.Expense {
	var out []core.Expense
	for _, e := range st.items {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func newestFirst(a, b core.Expense) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID > b.ID
}

func byID(a, b core.Expense) bool { return a.ID < b.ID }
