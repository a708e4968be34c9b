package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx DBTX) *Queries {
	return &Queries{db: tx}
}

// ExpenseRow mirrors the expenses table.
type ExpenseRow struct {
	ID              int64
	VendorName      string
	ItemBought      string
	Amount          string
	DateMs          int64
	Category        string
	IsRecurring     bool
	RecurringType   string
	RecurringAnchor int64
	Notes           string
	Tags            string
}

const expenseColumns = `id, vendor_name, item_bought, amount, date_ms, category,
	is_recurring, recurring_type, recurring_anchor, notes, tags`

const createExpense = `INSERT INTO expenses (
	vendor_name, item_bought, amount, date_ms, category,
	is_recurring, recurring_type, recurring_anchor, notes, tags
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

func (q *Queries) CreateExpense(ctx context.Context, arg ExpenseRow) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.VendorName, arg.ItemBought, arg.Amount, arg.DateMs, arg.Category,
		arg.IsRecurring, arg.RecurringType, arg.RecurringAnchor, arg.Notes, arg.Tags,
	)
	return scanExpense(row)
}

const updateExpense = `UPDATE expenses SET
	vendor_name = ?, item_bought = ?, amount = ?, date_ms = ?, category = ?,
	is_recurring = ?, recurring_type = ?, recurring_anchor = ?, notes = ?, tags = ?,
	updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) UpdateExpense(ctx context.Context, arg ExpenseRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense,
		arg.VendorName, arg.ItemBought, arg.Amount, arg.DateMs, arg.Category,
		arg.IsRecurring, arg.RecurringType, arg.RecurringAnchor, arg.Notes, arg.Tags,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteAllExpenses(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM expenses`)
	return err
}

func (q *Queries) GetExpense(ctx context.Context, id int64) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

const orderNewestFirst = ` ORDER BY date_ms DESC, id DESC`

func (q *Queries) GetExpensesByDateRange(ctx context.Context, startMs, endMs int64) ([]ExpenseRow, error) {
	return q.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE date_ms BETWEEN ? AND ?`+orderNewestFirst,
		startMs, endMs)
}

func (q *Queries) GetExpensesByCategory(ctx context.Context, category string) ([]ExpenseRow, error) {
	return q.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE category = ?`+orderNewestFirst,
		category)
}

func (q *Queries) GetRecurringExpenses(ctx context.Context) ([]ExpenseRow, error) {
	return q.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE is_recurring = 1 ORDER BY id`)
}

func (q *Queries) GetAllExpenses(ctx context.Context) ([]ExpenseRow, error) {
	return q.listExpenses(ctx, `SELECT `+expenseColumns+` FROM expenses`+orderNewestFirst)
}

const searchExpenses = `SELECT ` + expenseColumns + ` FROM expenses
WHERE LOWER(vendor_name) LIKE ? ESCAPE '\'
   OR LOWER(item_bought) LIKE ? ESCAPE '\'
   OR LOWER(category) LIKE ? ESCAPE '\'
   OR LOWER(notes) LIKE ? ESCAPE '\'
   OR amount LIKE ? ESCAPE '\'` + orderNewestFirst

func (q *Queries) SearchExpenses(ctx context.Context, text string) ([]ExpenseRow, error) {
	p := likePattern(strings.ToLower(text))
	return q.listExpenses(ctx, searchExpenses, p, p, p, p, p)
}

func (q *Queries) GetDistinctCategories(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT DISTINCT category FROM expenses ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (q *Queries) listExpenses(ctx context.Context, query string, args ...interface{}) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(s scanner) (ExpenseRow, error) {
	var i ExpenseRow
	err := s.Scan(
		&i.ID, &i.VendorName, &i.ItemBought, &i.Amount, &i.DateMs, &i.Category,
		&i.IsRecurring, &i.RecurringType, &i.RecurringAnchor, &i.Notes, &i.Tags,
	)
	return i, err
}

// likePattern wraps s in % wildcards, escaping LIKE metacharacters.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

const incrementTag = `INSERT INTO tag_usage (tag, count) VALUES (?, 1)
ON CONFLICT(tag) DO UPDATE SET count = count + 1`

func (q *Queries) IncrementTag(ctx context.Context, tag string) error {
	_, err := q.db.ExecContext(ctx, incrementTag, tag)
	return err
}

func (q *Queries) DeleteTag(ctx context.Context, tag string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM tag_usage WHERE tag = ?`, tag)
	return err
}

func (q *Queries) GetTagCounts(ctx context.Context) ([]TagCount, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT tag, count FROM tag_usage ORDER BY count DESC, tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TagCount
	for rows.Next() {
		var i TagCount
		if err := rows.Scan(&i.Tag, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	return value, err
}

const upsertSetting = `INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}

// CustomerRow mirrors the customers table.
type CustomerRow struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	Notes     string
	CreatedMs int64
	UpdatedMs int64
}

const customerColumns = `id, name, email, phone, address, notes, created_ms, updated_ms`

const createCustomer = `INSERT INTO customers (name, email, phone, address, notes, created_ms, updated_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + customerColumns

func (q *Queries) CreateCustomer(ctx context.Context, arg CustomerRow) (CustomerRow, error) {
	row := q.db.QueryRowContext(ctx, createCustomer,
		arg.Name, arg.Email, arg.Phone, arg.Address, arg.Notes, arg.CreatedMs, arg.UpdatedMs)
	return scanCustomer(row)
}

const updateCustomer = `UPDATE customers SET
	name = ?, email = ?, phone = ?, address = ?, notes = ?, updated_ms = ?
WHERE id = ?`

func (q *Queries) UpdateCustomer(ctx context.Context, arg CustomerRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCustomer,
		arg.Name, arg.Email, arg.Phone, arg.Address, arg.Notes, arg.UpdatedMs, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteCustomer(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetCustomer(ctx context.Context, id int64) (CustomerRow, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	return scanCustomer(row)
}

func (q *Queries) ListCustomers(ctx context.Context) ([]CustomerRow, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CustomerRow
	for rows.Next() {
		i, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func scanCustomer(s scanner) (CustomerRow, error) {
	var i CustomerRow
	err := s.Scan(&i.ID, &i.Name, &i.Email, &i.Phone, &i.Address, &i.Notes, &i.CreatedMs, &i.UpdatedMs)
	return i, err
}
