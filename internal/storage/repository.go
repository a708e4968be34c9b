package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"expensekeeper/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	inTx    bool
}

var (
	_ Store      = (*SQLiteRepository)(nil)
	_ ChangeFeed = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; the store serializes its own mutations.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil && !r.inTx {
		return r.db.Close()
	}
	return nil
}

// DataVersion returns PRAGMA data_version for the pool's connection. Commits
// made through this repository leave it unchanged; commits from any other
// connection to the file move it.
func (r *SQLiteRepository) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := r.queries.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read data version: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	arg, err := toExpenseRow(e)
	if err != nil {
		return core.Expense{}, err
	}
	row, err := r.queries.CreateExpense(ctx, arg)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"vendor", row.VendorName,
		"amount", row.Amount,
		"recurring", row.RecurringType)

	return fromExpenseRow(row)
}

func (r *SQLiteRepository) Update(ctx context.Context, e core.Expense) error {
	arg, err := toExpenseRow(e)
	if err != nil {
		return err
	}
	n, err := r.queries.UpdateExpense(ctx, arg)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update expense %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete expense %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if err := r.queries.DeleteAllExpenses(ctx); err != nil {
		return fmt.Errorf("delete all expenses: %w", err)
	}
	slog.InfoContext(ctx, "All expenses deleted")
	return nil
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return fromExpenseRow(row)
}

func (r *SQLiteRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	rows, err := r.queries.GetExpensesByDateRange(ctx, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("get expenses by date range: %w", err)
	}
	return fromExpenseRows(rows)
}

func (r *SQLiteRepository) ListByCategory(ctx context.Context, category string) ([]core.Expense, error) {
	rows, err := r.queries.GetExpensesByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("get expenses by category: %w", err)
	}
	return fromExpenseRows(rows)
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.GetRecurringExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("get recurring expenses: %w", err)
	}
	return fromExpenseRows(rows)
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.GetAllExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all expenses: %w", err)
	}
	return fromExpenseRows(rows)
}

func (r *SQLiteRepository) Search(ctx context.Context, text string) ([]core.Expense, error) {
	rows, err := r.queries.SearchExpenses(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("search expenses: %w", err)
	}
	return fromExpenseRows(rows)
}

func (r *SQLiteRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	cats, err := r.queries.GetDistinctCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("get distinct categories: %w", err)
	}
	return cats, nil
}

// WithinTx runs fn in a transaction. Nested calls reuse the outer transaction.
//
// The transaction begins IMMEDIATE, so it holds the database write lock from
// its first statement. Another process running WithinTx on the same file
// waits on busy_timeout instead of interleaving its reads with our writes.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(ExpenseStore) error) error {
	if r.inTx {
		return fn(r)
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	rollback := func() {
		if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
	}

	txRepo := &SQLiteRepository{db: r.db, queries: r.queries.WithTx(conn), inTx: true}
	if err := fn(txRepo); err != nil {
		rollback()
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		rollback()
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) IncrementTags(ctx context.Context, tags []string) error {
	for _, t := range tags {
		if err := r.queries.IncrementTag(ctx, t); err != nil {
			return fmt.Errorf("increment tag %q: %w", t, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) RemoveTag(ctx context.Context, tag string) error {
	if err := r.queries.DeleteTag(ctx, tag); err != nil {
		return fmt.Errorf("remove tag %q: %w", tag, err)
	}
	return nil
}

func (r *SQLiteRepository) TagCounts(ctx context.Context) ([]TagCount, error) {
	counts, err := r.queries.GetTagCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get tag counts: %w", err)
	}
	return counts, nil
}

func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	v, err := r.queries.GetSetting(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return v, true, nil
}

func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	if err := r.queries.UpsertSetting(ctx, key, value); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) InsertCustomer(ctx context.Context, c core.Customer) (core.Customer, error) {
	now := time.Now().UnixMilli()
	row, err := r.queries.CreateCustomer(ctx, CustomerRow{
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Notes:     c.Notes,
		CreatedMs: now,
		UpdatedMs: now,
	})
	if err != nil {
		return core.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return fromCustomerRow(row), nil
}

func (r *SQLiteRepository) UpdateCustomer(ctx context.Context, c core.Customer) error {
	n, err := r.queries.UpdateCustomer(ctx, CustomerRow{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Notes:     c.Notes,
		UpdatedMs: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("update customer %d: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update customer %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCustomer(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteCustomer(ctx, id)
	if err != nil {
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete customer %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) FindCustomer(ctx context.Context, id int64) (core.Customer, error) {
	row, err := r.queries.GetCustomer(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Customer{}, fmt.Errorf("get customer %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	return fromCustomerRow(row), nil
}

func (r *SQLiteRepository) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	rows, err := r.queries.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]core.Customer, len(rows))
	for i, row := range rows {
		out[i] = fromCustomerRow(row)
	}
	return out, nil
}

func toExpenseRow(e core.Expense) (ExpenseRow, error) {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	rawTags, err := json.Marshal(tags)
	if err != nil {
		return ExpenseRow{}, fmt.Errorf("encode tags: %w", err)
	}
	return ExpenseRow{
		ID:              e.ID,
		VendorName:      e.VendorName,
		ItemBought:      e.ItemBought,
		Amount:          core.FormatAmount(e.Amount),
		DateMs:          e.Date.UnixMilli(),
		Category:        e.Category,
		IsRecurring:     e.Recurrence.IsRecurring(),
		RecurringType:   string(e.Recurrence.Kind()),
		RecurringAnchor: int64(e.Recurrence.Anchor()),
		Notes:           e.Notes,
		Tags:            string(rawTags),
	}, nil
}

func fromExpenseRow(row ExpenseRow) (core.Expense, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: decode amount %q: %w", row.ID, row.Amount, err)
	}
	rec, err := core.RecurrenceFromStored(row.RecurringType, int(row.RecurringAnchor))
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", row.ID, err)
	}
	var tags []string
	if row.Tags != "" {
		if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
			return core.Expense{}, fmt.Errorf("expense %d: decode tags: %w", row.ID, err)
		}
	}
	if len(tags) == 0 {
		tags = nil
	}
	return core.Expense{
		ID:         row.ID,
		VendorName: row.VendorName,
		ItemBought: row.ItemBought,
		Amount:     amount,
		Date:       time.UnixMilli(row.DateMs).UTC(),
		Category:   row.Category,
		Recurrence: rec,
		Notes:      row.Notes,
		Tags:       tags,
	}, nil
}

func fromExpenseRows(rows []ExpenseRow) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := fromExpenseRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func fromCustomerRow(row CustomerRow) core.Customer {
	return core.Customer{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Phone:     row.Phone,
		Address:   row.Address,
		Notes:     row.Notes,
		CreatedAt: time.UnixMilli(row.CreatedMs).UTC(),
		UpdatedAt: time.UnixMilli(row.UpdatedMs).UTC(),
	}
}
