// Package storage is the SQLite ledger store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgie/internal/core"
	"budgie/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// DSN adds the pragmas the store relies on to a database path.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps the read-modify-write in AddSpendingItem serialised.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, userID)
	if err != nil {
		return nil, persistence("list categories", err)
	}
	out := make([]core.Category, len(rows))
	for i, c := range rows {
		out[i] = c.toCore()
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID string, id int64) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, id, userID)
	if err != nil {
		return core.Category{}, notFoundOr("get category", err)
	}
	return c.toCore(), nil
}

func (r *SQLiteRepository) FindCategory(ctx context.Context, userID, name string) (core.Category, error) {
	c, err := r.queries.GetCategoryByKey(ctx, userID, core.NormalizeCategoryName(name))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, &core.CategoryNotFoundError{Name: name}
	}
	if err != nil {
		return core.Category{}, persistence("find category", err)
	}
	return c.toCore(), nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID, name string) (core.Category, error) {
	cat := core.Category{UserID: userID, Name: strings.TrimSpace(name)}
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	c, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		UserID:    userID,
		Name:      cat.Name,
		NameKey:   core.NormalizeCategoryName(cat.Name),
		CreatedAt: r.now(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrDuplicateCategory
		}
		return core.Category{}, persistence("create category", err)
	}

	slog.InfoContext(ctx, "Category created", "user_id", userID, "category_id", c.ID, "category", c.Name)
	return c.toCore(), nil
}

func (r *SQLiteRepository) SetCategoryTotal(ctx context.Context, userID string, id int64, total core.Money) (core.Category, error) {
	if total.Cents < 0 {
		return core.Category{}, core.ErrNegativeTotal
	}
	var out Category
	err := r.withTx(ctx, func(q *Queries) error {
		n, err := q.SetCategoryTotal(ctx, total.Cents, id, userID)
		if err != nil {
			return persistence("set category total", err)
		}
		if n == 0 {
			return core.ErrNotFound
		}
		out, err = q.GetCategory(ctx, id, userID)
		return notFoundOr("get category", err)
	})
	if err != nil {
		return core.Category{}, err
	}
	return out.toCore(), nil
}

func (r *SQLiteRepository) AdjustCategoryTotal(ctx context.Context, userID string, id int64, delta core.Money) (core.Category, error) {
	var out Category
	err := r.withTx(ctx, func(q *Queries) error {
		if err := addToTotal(ctx, q, userID, id, delta.Cents); err != nil {
			return err
		}
		var err error
		out, err = q.GetCategory(ctx, id, userID)
		return notFoundOr("get category", err)
	})
	if err != nil {
		return core.Category{}, err
	}
	return out.toCore(), nil
}

// addToTotal applies delta and tells a missing row apart from a total that
// would go negative.
func addToTotal(ctx context.Context, q *Queries, userID string, id, delta int64) error {
	n, err := q.AddToCategoryTotal(ctx, delta, id, userID)
	if err != nil {
		return persistence("update category total", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := q.GetCategory(ctx, id, userID); err != nil {
		return notFoundOr("get category", err)
	}
	return core.ErrNegativeTotal
}

func (r *SQLiteRepository) ResetTotals(ctx context.Context, userID string) error {
	if err := r.queries.ResetTotals(ctx, userID); err != nil {
		return persistence("reset totals", err)
	}
	slog.InfoContext(ctx, "Category totals reset", "user_id", userID)
	return nil
}

// AddSpendingItem inserts the item and bumps the category total in one
// transaction.
func (r *SQLiteRepository) AddSpendingItem(ctx context.Context, item core.SpendingItem) (core.SpendingItem, error) {
	item.ItemName = strings.TrimSpace(item.ItemName)
	if err := item.Validate(); err != nil {
		return core.SpendingItem{}, err
	}

	err := r.withTx(ctx, func(q *Queries) error {
		var cat Category
		var err error
		if item.CategoryID != 0 {
			cat, err = q.GetCategory(ctx, item.CategoryID, item.UserID)
			if err != nil {
				return notFoundOr("get category", err)
			}
		} else {
			cat, err = q.GetCategoryByKey(ctx, item.UserID, core.NormalizeCategoryName(item.CategoryName))
			if errors.Is(err, sql.ErrNoRows) {
				return &core.CategoryNotFoundError{Name: item.CategoryName}
			}
			if err != nil {
				return persistence("find category", err)
			}
		}

		if err := addToTotal(ctx, q, item.UserID, cat.ID, item.Amount.Cents); err != nil {
			return err
		}

		item.CategoryID = cat.ID
		item.CategoryName = cat.Name
		item.CreatedAt = r.now()
		item.ID, err = q.CreateSpendingItem(ctx, CreateSpendingItemParams{
			UserID:      item.UserID,
			CategoryID:  cat.ID,
			ItemName:    item.ItemName,
			AmountCents: item.Amount.Cents,
			CreatedAt:   item.CreatedAt,
		})
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

func (r *SQLiteRepository) ListCategoryItems(ctx context.Context, userID string, categoryID int64) ([]core.SpendingItem, error) {
	if _, err := r.queries.GetCategory(ctx, categoryID, userID); err != nil {
		return nil, notFoundOr("get category", err)
	}
	rows, err := r.queries.ListCategoryItems(ctx, userID, categoryID)
	if err != nil {
		return nil, persistence("list category items", err)
	}
	return itemsToCore(rows), nil
}

func (r *SQLiteRepository) ListItems(ctx context.Context, userID string) ([]core.SpendingItem, error) {
	rows, err := r.queries.ListItems(ctx, userID)
	if err != nil {
		return nil, persistence("list items", err)
	}
	return itemsToCore(rows), nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.queries.ListActiveBudgets(ctx, userID)
	if err != nil {
		return nil, persistence("list budgets", err)
	}
	out := make([]core.Budget, len(rows))
	for i, b := range rows {
		out[i] = b.toCore()
	}
	return out, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID string, id int64) (core.Budget, error) {
	b, err := r.queries.GetBudget(ctx, id, userID)
	if err != nil {
		return core.Budget{}, notFoundOr("get budget", err)
	}
	return b.toCore(), nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.Period == "" {
		b.Period = core.Monthly
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.Amount.Cents <= 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}

	var out Budget
	err := r.withTx(ctx, func(q *Queries) error {
		if _, err := q.GetCategory(ctx, b.CategoryID, b.UserID); err != nil {
			return notFoundOr("get category", err)
		}
		now := r.now()
		start := b.StartDate
		if start.IsZero() {
			y, m, d := now.Date()
			start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
		id, err := q.CreateBudget(ctx, CreateBudgetParams{
			UserID:      b.UserID,
			CategoryID:  b.CategoryID,
			AmountCents: b.Amount.Cents,
			Period:      string(b.Period),
			StartDate:   start,
			CreatedAt:   now,
		})
		if err != nil {
			return persistence("create budget", err)
		}
		out, err = q.GetBudget(ctx, id, b.UserID)
		return notFoundOr("get budget", err)
	})
	if err != nil {
		return core.Budget{}, err
	}
	return out.toCore(), nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, userID string, id int64, amount core.Money) (core.Budget, error) {
	if amount.Cents < 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	n, err := r.queries.UpdateBudget(ctx, amount.Cents, r.now(), id, userID)
	if err != nil {
		return core.Budget{}, persistence("update budget", err)
	}
	if n == 0 {
		return core.Budget{}, core.ErrNotFound
	}
	return r.GetBudget(ctx, userID, id)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID string, id int64) error {
	n, err := r.queries.DeleteBudget(ctx, id, userID)
	if err != nil {
		return persistence("delete budget", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	users, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, persistence("list users", err)
	}
	return users, nil
}

func (c Category) toCore() core.Category {
	return core.Category{
		ID:         c.ID,
		UserID:     c.UserID,
		Name:       c.Name,
		TotalSpent: core.Money{Cents: c.TotalSpentCents},
		CreatedAt:  c.CreatedAt,
	}
}

func (b Budget) toCore() core.Budget {
	return core.Budget{
		ID:           b.ID,
		UserID:       b.UserID,
		CategoryID:   b.CategoryID,
		CategoryName: b.CategoryName,
		Amount:       core.Money{Cents: b.AmountCents},
		Period:       core.BudgetPeriod(b.Period),
		Active:       b.Active,
		StartDate:    b.StartDate,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func itemsToCore(rows []SpendingItem) []core.SpendingItem {
	out := make([]core.SpendingItem, len(rows))
	for i, it := range rows {
		out[i] = core.SpendingItem{
			ID:           it.ID,
			UserID:       it.UserID,
			CategoryID:   it.CategoryID,
			CategoryName: it.CategoryName,
			ItemName:     it.ItemName,
			Amount:       core.Money{Cents: it.AmountCents},
			CreatedAt:    it.CreatedAt,
		}
	}
	return out
}

func persistence(op string, err error) error {
	return &core.PersistenceError{Op: op, Err: err}
}

func notFoundOr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return persistence(op, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
