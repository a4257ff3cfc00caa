package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Category struct {
	ID              int64
	UserID          string
	Name            string
	NameKey         string
	TotalSpentCents int64
	CreatedAt       time.Time
}

type SpendingItem struct {
	ID           int64
	UserID       string
	CategoryID   int64
	CategoryName string
	ItemName     string
	AmountCents  int64
	CreatedAt    time.Time
}

type Budget struct {
	ID           int64
	UserID       string
	CategoryID   int64
	CategoryName string
	AmountCents  int64
	Period       string
	Active       bool
	StartDate    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const categoryColumns = `id, user_id, name, name_key, total_spent_cents, created_at`

func scanCategory(row interface{ Scan(...any) error }) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.NameKey, &c.TotalSpentCents, &c.CreatedAt)
	return c, err
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ? ORDER BY name, id`

func (q *Queries) ListCategories(ctx context.Context, userID string) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getCategory = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ? AND user_id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64, userID string) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id, userID))
}

const getCategoryByKey = `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ? AND name_key = ?`

func (q *Queries) GetCategoryByKey(ctx context.Context, userID, nameKey string) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategoryByKey, userID, nameKey))
}

const createCategory = `INSERT INTO categories (user_id, name, name_key, total_spent_cents, created_at)
VALUES (?, ?, ?, 0, ?)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	UserID    string
	Name      string
	NameKey   string
	CreatedAt time.Time
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, createCategory, arg.UserID, arg.Name, arg.NameKey, arg.CreatedAt))
}

const setCategoryTotal = `UPDATE categories SET total_spent_cents = ? WHERE id = ? AND user_id = ?`

func (q *Queries) SetCategoryTotal(ctx context.Context, totalCents, id int64, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setCategoryTotal, totalCents, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// addToCategoryTotal only matches when the new total stays non-negative.
const addToCategoryTotal = `UPDATE categories SET total_spent_cents = total_spent_cents + ?
WHERE id = ? AND user_id = ? AND total_spent_cents + ? >= 0`

func (q *Queries) AddToCategoryTotal(ctx context.Context, deltaCents, id int64, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, addToCategoryTotal, deltaCents, id, userID, deltaCents)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const resetTotals = `UPDATE categories SET total_spent_cents = 0 WHERE user_id = ?`

func (q *Queries) ResetTotals(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, resetTotals, userID)
	return err
}

const listUsers = `SELECT DISTINCT user_id FROM categories ORDER BY user_id`

func (q *Queries) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const createSpendingItem = `INSERT INTO spending_items (user_id, category_id, item_name, amount_cents, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

type CreateSpendingItemParams struct {
	UserID      string
	CategoryID  int64
	ItemName    string
	AmountCents int64
	CreatedAt   time.Time
}

func (q *Queries) CreateSpendingItem(ctx context.Context, arg CreateSpendingItemParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createSpendingItem,
		arg.UserID, arg.CategoryID, arg.ItemName, arg.AmountCents, arg.CreatedAt,
	).Scan(&id)
	return id, err
}

const itemColumns = `i.id, i.user_id, i.category_id, c.name, i.item_name, i.amount_cents, i.created_at`

const listItems = `SELECT ` + itemColumns + `
FROM spending_items i JOIN categories c ON c.id = i.category_id
WHERE i.user_id = ?
ORDER BY i.created_at DESC, i.id DESC`

const listCategoryItems = `SELECT ` + itemColumns + `
FROM spending_items i JOIN categories c ON c.id = i.category_id
WHERE i.user_id = ? AND i.category_id = ?
ORDER BY i.created_at DESC, i.id DESC`

func (q *Queries) ListItems(ctx context.Context, userID string) ([]SpendingItem, error) {
	return q.queryItems(ctx, listItems, userID)
}

func (q *Queries) ListCategoryItems(ctx context.Context, userID string, categoryID int64) ([]SpendingItem, error) {
	return q.queryItems(ctx, listCategoryItems, userID, categoryID)
}

func (q *Queries) queryItems(ctx context.Context, query string, args ...any) ([]SpendingItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SpendingItem
	for rows.Next() {
		var i SpendingItem
		if err := rows.Scan(&i.ID, &i.UserID, &i.CategoryID, &i.CategoryName, &i.ItemName, &i.AmountCents, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const budgetColumns = `b.id, b.user_id, b.category_id, c.name, b.amount_cents, b.period, b.active, b.start_date, b.created_at, b.updated_at`

func scanBudget(row interface{ Scan(...any) error }) (Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.AmountCents,
		&b.Period, &b.Active, &b.StartDate, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

const listActiveBudgets = `SELECT ` + budgetColumns + `
FROM budgets b JOIN categories c ON c.id = b.category_id
WHERE b.user_id = ? AND b.active = 1
ORDER BY b.created_at, b.id`

func (q *Queries) ListActiveBudgets(ctx context.Context, userID string) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listActiveBudgets, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const getBudget = `SELECT ` + budgetColumns + `
FROM budgets b JOIN categories c ON c.id = b.category_id
WHERE b.id = ? AND b.user_id = ?`

func (q *Queries) GetBudget(ctx context.Context, id int64, userID string) (Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, getBudget, id, userID))
}

const createBudget = `INSERT INTO budgets (user_id, category_id, amount_cents, period, active, start_date, created_at, updated_at)
VALUES (?, ?, ?, ?, 1, ?, ?, ?)
RETURNING id`

type CreateBudgetParams struct {
	UserID      string
	CategoryID  int64
	AmountCents int64
	Period      string
	StartDate   time.Time
	CreatedAt   time.Time
}

func (q *Queries) CreateBudget(ctx context.Context, arg CreateBudgetParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createBudget,
		arg.UserID, arg.CategoryID, arg.AmountCents, arg.Period, arg.StartDate, arg.CreatedAt, arg.CreatedAt,
	).Scan(&id)
	return id, err
}

const updateBudget = `UPDATE budgets SET amount_cents = ?, period = 'monthly', updated_at = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, amountCents int64, updatedAt time.Time, id int64, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudget, amountCents, updatedAt, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBudget = `DELETE FROM budgets WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id int64, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
