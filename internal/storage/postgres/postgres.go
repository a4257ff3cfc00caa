// Package postgres is the PostgreSQL ledger store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budgie/internal/core"
	"budgie/internal/ledger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ledger.Store = (*Storage)(nil)

type Storage struct {
	db *pgxpool.Pool
}

func NewStorage(db *pgxpool.Pool) *Storage {
	return &Storage{db: db}
}

// Open migrates the database at url and returns a pooled store.
func Open(ctx context.Context, url string) (*Storage, error) {
	if err := RunMigrations(url); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewStorage(pool), nil
}

func (s *Storage) Close() error {
	s.db.Close()
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const categoryColumns = `id, user_id, name, total_spent_cents, created_at`

func scanCategory(row pgx.Row) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.TotalSpent.Cents, &c.CreatedAt)
	return c, err
}

func getCategory(ctx context.Context, q querier, userID string, id int64) (core.Category, error) {
	c, err := scanCategory(q.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return core.Category{}, notFoundOr("get category", err)
	}
	return c, nil
}

func findCategory(ctx context.Context, q querier, userID, name string) (core.Category, error) {
	c, err := scanCategory(q.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND name_key = $2`,
		userID, core.NormalizeCategoryName(name)))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, &core.CategoryNotFoundError{Name: name}
	}
	if err != nil {
		return core.Category{}, persistence("find category", err)
	}
	return c, nil
}

func (s *Storage) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 ORDER BY name COLLATE "C", id`, userID)
	if err != nil {
		return nil, persistence("list categories", err)
	}
	cats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Category, error) {
		return scanCategory(row)
	})
	if err != nil {
		return nil, persistence("list categories", err)
	}
	return cats, nil
}

func (s *Storage) GetCategory(ctx context.Context, userID string, id int64) (core.Category, error) {
	return getCategory(ctx, s.db, userID, id)
}

func (s *Storage) FindCategory(ctx context.Context, userID, name string) (core.Category, error) {
	return findCategory(ctx, s.db, userID, name)
}

func (s *Storage) CreateCategory(ctx context.Context, userID, name string) (core.Category, error) {
	cat := core.Category{UserID: userID, Name: strings.TrimSpace(name)}
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	c, err := scanCategory(s.db.QueryRow(ctx, `
		INSERT INTO categories (user_id, name, name_key)
		VALUES ($1, $2, $3)
		RETURNING `+categoryColumns,
		userID, cat.Name, core.NormalizeCategoryName(cat.Name)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return core.Category{}, core.ErrDuplicateCategory
		}
		return core.Category{}, persistence("create category", err)
	}
	slog.InfoContext(ctx, "Category created", "user_id", userID, "category_id", c.ID, "category", c.Name)
	return c, nil
}

func (s *Storage) SetCategoryTotal(ctx context.Context, userID string, id int64, total core.Money) (core.Category, error) {
	if total.Cents < 0 {
		return core.Category{}, core.ErrNegativeTotal
	}
	c, err := scanCategory(s.db.QueryRow(ctx, `
		UPDATE categories SET total_spent_cents = $1
		WHERE id = $2 AND user_id = $3
		RETURNING `+categoryColumns, total.Cents, id, userID))
	if err != nil {
		return core.Category{}, notFoundOr("set category total", err)
	}
	return c, nil
}

func (s *Storage) AdjustCategoryTotal(ctx context.Context, userID string, id int64, delta core.Money) (core.Category, error) {
	return addToTotal(ctx, s.db, userID, id, delta.Cents)
}

// addToTotal applies delta and tells a missing row apart from a total that
// would go negative.
func addToTotal(ctx context.Context, q querier, userID string, id, delta int64) (core.Category, error) {
	c, err := scanCategory(q.QueryRow(ctx, `
		UPDATE categories SET total_spent_cents = total_spent_cents + $1
		WHERE id = $2 AND user_id = $3 AND total_spent_cents + $1 >= 0
		RETURNING `+categoryColumns, delta, id, userID))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, persistence("update category total", err)
	}
	if _, err := getCategory(ctx, q, userID, id); err != nil {
		return core.Category{}, err
	}
	return core.Category{}, core.ErrNegativeTotal
}

func (s *Storage) ResetTotals(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, `UPDATE categories SET total_spent_cents = 0 WHERE user_id = $1`, userID); err != nil {
		return persistence("reset totals", err)
	}
	slog.InfoContext(ctx, "Category totals reset", "user_id", userID)
	return nil
}

// AddSpendingItem inserts the item and bumps the category total in one
// transaction.
func (s *Storage) AddSpendingItem(ctx context.Context, item core.SpendingItem) (core.SpendingItem, error) {
	item.ItemName = strings.TrimSpace(item.ItemName)
	if err := item.Validate(); err != nil {
		return core.SpendingItem{}, err
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var cat core.Category
		var err error
		if item.CategoryID != 0 {
			cat, err = getCategory(ctx, tx, item.UserID, item.CategoryID)
		} else {
			cat, err = findCategory(ctx, tx, item.UserID, item.CategoryName)
		}
		if err != nil {
			return err
		}
		if _, err := addToTotal(ctx, tx, item.UserID, cat.ID, item.Amount.Cents); err != nil {
			return err
		}

		item.CategoryID = cat.ID
		item.CategoryName = cat.Name
		err = tx.QueryRow(ctx, `
			INSERT INTO spending_items (user_id, category_id, item_name, amount_cents)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at`,
			item.UserID, cat.ID, item.ItemName, item.Amount.Cents,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return persistence("insert spending item", err)
		}
		return nil
	})
	if err != nil {
		return core.SpendingItem{}, err
	}
	return item, nil
}

const itemQuery = `
	SELECT i.id, i.user_id, i.category_id, c.name, i.item_name, i.amount_cents, i.created_at
	FROM spending_items i JOIN categories c ON c.id = i.category_id
	WHERE i.user_id = $1`

func (s *Storage) queryItems(ctx context.Context, sql string, args ...any) ([]core.SpendingItem, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, persistence("list items", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.SpendingItem, error) {
		var it core.SpendingItem
		err := row.Scan(&it.ID, &it.UserID, &it.CategoryID, &it.CategoryName, &it.ItemName, &it.Amount.Cents, &it.CreatedAt)
		return it, err
	})
	if err != nil {
		return nil, persistence("list items", err)
	}
	return items, nil
}

func (s *Storage) ListCategoryItems(ctx context.Context, userID string, categoryID int64) ([]core.SpendingItem, error) {
	if _, err := getCategory(ctx, s.db, userID, categoryID); err != nil {
		return nil, err
	}
	return s.queryItems(ctx, itemQuery+` AND i.category_id = $2 ORDER BY i.created_at DESC, i.id DESC`, userID, categoryID)
}

func (s *Storage) ListItems(ctx context.Context, userID string) ([]core.SpendingItem, error) {
	return s.queryItems(ctx, itemQuery+` ORDER BY i.created_at DESC, i.id DESC`, userID)
}

const budgetQuery = `
	SELECT b.id, b.user_id, b.category_id, c.name, b.amount_cents, b.period, b.active,
	       b.start_date, b.created_at, b.updated_at
	FROM budgets b JOIN categories c ON c.id = b.category_id`

func scanBudget(row pgx.Row) (core.Budget, error) {
	var b core.Budget
	var period string
	err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.Amount.Cents, &period,
		&b.Active, &b.StartDate, &b.CreatedAt, &b.UpdatedAt)
	b.Period = core.BudgetPeriod(period)
	return b, err
}

func (s *Storage) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := s.db.Query(ctx, budgetQuery+` WHERE b.user_id = $1 AND b.active ORDER BY b.created_at, b.id`, userID)
	if err != nil {
		return nil, persistence("list budgets", err)
	}
	budgets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Budget, error) {
		return scanBudget(row)
	})
	if err != nil {
		return nil, persistence("list budgets", err)
	}
	return budgets, nil
}

func (s *Storage) GetBudget(ctx context.Context, userID string, id int64) (core.Budget, error) {
	b, err := scanBudget(s.db.QueryRow(ctx, budgetQuery+` WHERE b.id = $1 AND b.user_id = $2`, id, userID))
	if err != nil {
		return core.Budget{}, notFoundOr("get budget", err)
	}
	return b, nil
}

func (s *Storage) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.Period == "" {
		b.Period = core.Monthly
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.Amount.Cents <= 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	if _, err := getCategory(ctx, s.db, b.UserID, b.CategoryID); err != nil {
		return core.Budget{}, err
	}

	start := b.StartDate
	if start.IsZero() {
		now := time.Now().UTC()
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO budgets (user_id, category_id, amount_cents, period, start_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		b.UserID, b.CategoryID, b.Amount.Cents, string(b.Period), start,
	).Scan(&id)
	if err != nil {
		return core.Budget{}, persistence("create budget", err)
	}
	return s.GetBudget(ctx, b.UserID, id)
}

func (s *Storage) UpdateBudget(ctx context.Context, userID string, id int64, amount core.Money) (core.Budget, error) {
	if amount.Cents < 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE budgets SET amount_cents = $1, period = 'monthly', updated_at = now()
		WHERE id = $2 AND user_id = $3`, amount.Cents, id, userID)
	if err != nil {
		return core.Budget{}, persistence("update budget", err)
	}
	if tag.RowsAffected() == 0 {
		return core.Budget{}, core.ErrNotFound
	}
	return s.GetBudget(ctx, userID, id)
}

func (s *Storage) DeleteBudget(ctx context.Context, userID string, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return persistence("delete budget", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT user_id FROM categories ORDER BY user_id`)
	if err != nil {
		return nil, persistence("list users", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, persistence("list users", err)
	}
	return users, nil
}

func persistence(op string, err error) error {
	return &core.PersistenceError{Op: op, Err: err}
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return persistence(op, err)
}
