// Package storagetest holds the behaviour every storage backend must share.
// Backends run it from their own tests with a constructor for a fresh store.
package storagetest

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"expensekeeper/internal/core"
	"expensekeeper/internal/storage"
)

type StoreSuite struct {
	suite.Suite
	NewStore func() storage.Store

	store storage.Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = s.NewStore()
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func day(m time.Month, d, hour int) time.Time {
	return time.Date(2024, m, d, hour, 0, 0, 0, time.UTC)
}

func sample(vendor, category, amount string, at time.Time) core.Expense {
	return core.Expense{
		VendorName: vendor,
		ItemBought: "Item",
		Amount:     decimal.RequireFromString(amount),
		Date:       at,
		Category:   category,
	}
}

func (s *StoreSuite) insert(e core.Expense) core.Expense {
	out, err := s.store.Insert(s.ctx, e)
	s.Require().NoError(err)
	return out
}

func (s *StoreSuite) TestInsertAssignsIDAndRoundTrips() {
	e := sample("Corner Shop", "Food", "12.30", day(time.June, 3, 9))
	e.Recurrence = core.Weekly(time.Monday)
	e.Notes = "weekly bread"
	e.Tags = []string{"home", "Bakery"}

	saved := s.insert(e)
	s.NotZero(saved.ID)

	got, err := s.store.FindByID(s.ctx, saved.ID)
	s.Require().NoError(err)
	s.Equal("Corner Shop", got.VendorName)
	s.True(got.Amount.Equal(decimal.RequireFromString("12.3")))
	s.True(got.Date.Equal(e.Date))
	s.Equal(core.RecurrenceWeekly, got.Recurrence.Kind())
	s.Equal(time.Monday, got.Recurrence.AnchorWeekday())
	s.Equal([]string{"home", "Bakery"}, got.Tags)
	s.Equal("weekly bread", got.Notes)
}

func (s *StoreSuite) TestFindMissingReturnsNotFound() {
	_, err := s.store.FindByID(s.ctx, 999)
	s.True(errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func (s *StoreSuite) TestUpdateAndDelete() {
	saved := s.insert(sample("A", "Food", "5", day(time.June, 1, 8)))

	saved.Amount = decimal.RequireFromString("7.25")
	saved.Recurrence = core.NoRecurrence()
	s.Require().NoError(s.store.Update(s.ctx, saved))

	got, err := s.store.FindByID(s.ctx, saved.ID)
	s.Require().NoError(err)
	s.True(got.Amount.Equal(decimal.RequireFromString("7.25")))

	s.Require().NoError(s.store.Delete(s.ctx, saved.ID))
	_, err = s.store.FindByID(s.ctx, saved.ID)
	s.True(errors.Is(err, storage.ErrNotFound))

	s.True(errors.Is(s.store.Delete(s.ctx, saved.ID), storage.ErrNotFound))
	missing := saved
	missing.ID = 12345
	s.True(errors.Is(s.store.Update(s.ctx, missing), storage.ErrNotFound))
}

func (s *StoreSuite) TestDeleteAll() {
	s.insert(sample("A", "Food", "1", day(time.June, 1, 8)))
	s.insert(sample("B", "Food", "2", day(time.June, 2, 8)))
	s.Require().NoError(s.store.DeleteAll(s.ctx))
	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *StoreSuite) TestListByDateRangeIsInclusiveAndNewestFirst() {
	s.insert(sample("May", "Food", "1", day(time.May, 31, 23)))
	first := s.insert(sample("Start", "Food", "2", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	mid := s.insert(sample("Mid", "Travel", "3", day(time.June, 15, 12)))
	last := s.insert(sample("End", "Food", "4", time.Date(2024, 6, 30, 23, 59, 59, int(999*time.Millisecond), time.UTC)))
	s.insert(sample("July", "Food", "5", day(time.July, 1, 0)))

	got, err := s.store.ListByDateRange(s.ctx,
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 23, 59, 59, int(999*time.Millisecond), time.UTC))
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal([]int64{last.ID, mid.ID, first.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func (s *StoreSuite) TestListByCategoryAndDistinct() {
	s.insert(sample("A", "Food", "1", day(time.June, 1, 8)))
	s.insert(sample("B", "Travel", "2", day(time.June, 2, 8)))
	s.insert(sample("C", "Food", "3", day(time.June, 3, 8)))

	food, err := s.store.ListByCategory(s.ctx, "Food")
	s.Require().NoError(err)
	s.Len(food, 2)
	s.Equal("C", food[0].VendorName)

	cats, err := s.store.DistinctCategories(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Food", "Travel"}, cats)
}

func (s *StoreSuite) TestListRecurring() {
	d := sample("Gym", "Health", "30", day(time.June, 1, 8))
	d.Recurrence = core.Monthly(1)
	s.insert(d)
	s.insert(sample("Once", "Food", "3", day(time.June, 2, 8)))
	w := sample("Paper", "Bills", "2", day(time.June, 3, 8))
	w.Recurrence = core.Daily()
	s.insert(w)

	got, err := s.store.ListRecurring(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("Gym", got[0].VendorName)
	s.Equal(1, got[0].Recurrence.AnchorDay())
	s.Equal("Paper", got[1].VendorName)
}

func (s *StoreSuite) TestSearchIsCaseInsensitive() {
	a := sample("Corner Shop", "Food", "12.50", day(time.June, 1, 8))
	a.Notes = "Sourdough"
	s.insert(a)
	s.insert(sample("Airline", "Travel", "300", day(time.June, 2, 8)))
	s.insert(sample("100%_Cotton", "Shopping", "20", day(time.June, 3, 8)))

	cases := map[string]int{
		"corner":    1,
		"SOURDOUGH": 1,
		"travel":    1,
		"12.5":      1,
		"%":         1,
		"_":         1,
		"zzz":       0,
	}
	for text, want := range cases {
		got, err := s.store.Search(s.ctx, text)
		s.Require().NoError(err)
		s.Len(got, want, "search %q", text)
	}
}

func (s *StoreSuite) TestWithinTxRollsBackOnError() {
	s.insert(sample("Keep", "Food", "1", day(time.June, 1, 8)))
	boom := errors.New("boom")

	err := s.store.WithinTx(s.ctx, func(tx storage.ExpenseStore) error {
		if _, err := tx.Insert(s.ctx, sample("Lost", "Food", "2", day(time.June, 2, 8))); err != nil {
			return err
		}
		return boom
	})
	s.True(errors.Is(err, boom))

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal("Keep", all[0].VendorName)

	err = s.store.WithinTx(s.ctx, func(tx storage.ExpenseStore) error {
		_, err := tx.Insert(s.ctx, sample("Committed", "Food", "3", day(time.June, 3, 8)))
		return err
	})
	s.Require().NoError(err)
	all, err = s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *StoreSuite) TestTagCounts() {
	s.Require().NoError(s.store.IncrementTags(s.ctx, []string{"work", "lunch"}))
	s.Require().NoError(s.store.IncrementTags(s.ctx, []string{"work"}))

	got, err := s.store.TagCounts(s.ctx)
	s.Require().NoError(err)
	s.Equal([]storage.TagCount{{Tag: "work", Count: 2}, {Tag: "lunch", Count: 1}}, got)

	s.Require().NoError(s.store.RemoveTag(s.ctx, "work"))
	got, err = s.store.TagCounts(s.ctx)
	s.Require().NoError(err)
	s.Equal([]storage.TagCount{{Tag: "lunch", Count: 1}}, got)
}

func (s *StoreSuite) TestSettings() {
	_, ok, err := s.store.GetSetting(s.ctx, "monthly_budget")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.SetSetting(s.ctx, "monthly_budget", "1000"))
	s.Require().NoError(s.store.SetSetting(s.ctx, "monthly_budget", "1200"))
	v, ok, err := s.store.GetSetting(s.ctx, "monthly_budget")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("1200", v)
}

func (s *StoreSuite) TestCustomers() {
	bob, err := s.store.InsertCustomer(s.ctx, core.Customer{Name: "bob", Email: "bob@example.com"})
	s.Require().NoError(err)
	_, err = s.store.InsertCustomer(s.ctx, core.Customer{Name: "Alice", Phone: "555"})
	s.Require().NoError(err)

	list, err := s.store.ListCustomers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("Alice", list[0].Name)

	bob.Address = "1 Main St"
	s.Require().NoError(s.store.UpdateCustomer(s.ctx, bob))
	got, err := s.store.FindCustomer(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Equal("1 Main St", got.Address)

	s.Require().NoError(s.store.DeleteCustomer(s.ctx, bob.ID))
	_, err = s.store.FindCustomer(s.ctx, bob.ID)
	s.True(errors.Is(err, storage.ErrNotFound))
}
