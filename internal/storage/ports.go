package storage

import (
	"context"
	"errors"
	"time"

	"expensekeeper/internal/core"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("not found")

// ExpenseStore is the persistent collection of expenses. Implementations
// serialize their own mutations. Every list is ordered by date descending,
// then id descending, except ListRecurring which is ordered by id.
type ExpenseStore interface {
	// Insert stores e and returns it with its assigned id. A non-zero id is ignored.
	Insert(ctx context.Context, e core.Expense) (core.Expense, error)
	Update(ctx context.Context, e core.Expense) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
	FindByID(ctx context.Context, id int64) (core.Expense, error)
	// ListByDateRange returns expenses dated within [start, end].
	ListByDateRange(ctx context.Context, start, end time.Time) ([]core.Expense, error)
	ListByCategory(ctx context.Context, category string) ([]core.Expense, error)
	ListRecurring(ctx context.Context) ([]core.Expense, error)
	ListAll(ctx context.Context) ([]core.Expense, error)
	// Search matches text case-insensitively against vendor, item, category,
	// notes and the amount rendered as text.
	Search(ctx context.Context, text string) ([]core.Expense, error)
	DistinctCategories(ctx context.Context) ([]string, error)
	// WithinTx runs fn against a store bound to a single transaction that is
	// committed when fn returns nil and rolled back otherwise.
	WithinTx(ctx context.Context, fn func(ExpenseStore) error) error
}

// ChangeFeed exposes a counter that moves when another connection, possibly
// in another process, commits to the same database.
type ChangeFeed interface {
	DataVersion(ctx context.Context) (int64, error)
}

// TagCount is one row of the tag frequency table.
type TagCount struct {
	Tag   string
	Count int64
}

// TagStore persists normalized tag usage counts.
type TagStore interface {
	IncrementTags(ctx context.Context, tags []string) error
	RemoveTag(ctx context.Context, tag string) error
	// TagCounts returns every tag ordered by count descending, then tag.
	TagCounts(ctx context.Context) ([]TagCount, error)
}

// SettingsStore is a small key/value table for standing values such as the
// monthly budget and user preferences.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

type CustomerStore interface {
	InsertCustomer(ctx context.Context, c core.Customer) (core.Customer, error)
	UpdateCustomer(ctx context.Context, c core.Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
	FindCustomer(ctx context.Context, id int64) (core.Customer, error)
	// ListCustomers returns customers ordered by name.
	ListCustomers(ctx context.Context) ([]core.Customer, error)
}

// Store bundles everything a backend provides.
type Store interface {
	ExpenseStore
	TagStore
	SettingsStore
	CustomerStore
	Close() error
}
