// Package ledger defines the store ports for categories, spending items and
// budgets. Every operation is scoped by the owning user; a row that belongs
// to someone else is reported as core.ErrNotFound.
package ledger

import (
	"context"

	"budgie/internal/core"
)

// Ports for storage adapters.
type (
	CategoryStore interface {
		// ListCategories returns the user's categories ordered by name.
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
		GetCategory(ctx context.Context, userID string, id int64) (core.Category, error)
		// FindCategory matches name case-insensitively and returns
		// *core.CategoryNotFoundError on a miss.
		FindCategory(ctx context.Context, userID, name string) (core.Category, error)
		// CreateCategory starts the category at zero. Names are unique per
		// user regardless of case.
		CreateCategory(ctx context.Context, userID, name string) (core.Category, error)
		SetCategoryTotal(ctx context.Context, userID string, id int64, total core.Money) (core.Category, error)
		// AdjustCategoryTotal rejects a delta that would take the total below zero.
		AdjustCategoryTotal(ctx context.Context, userID string, id int64, delta core.Money) (core.Category, error)
		ResetTotals(ctx context.Context, userID string) error
	}

	ItemStore interface {
		// AddSpendingItem inserts the item and increments its category total
		// in one atomic step. The category is taken from CategoryID, or
		// looked up by CategoryName when the ID is zero.
		AddSpendingItem(ctx context.Context, item core.SpendingItem) (core.SpendingItem, error)
		// ListCategoryItems returns one category's items, newest first.
		ListCategoryItems(ctx context.Context, userID string, categoryID int64) ([]core.SpendingItem, error)
		// ListItems returns all of the user's items, newest first.
		ListItems(ctx context.Context, userID string) ([]core.SpendingItem, error)
	}

	BudgetStore interface {
		// ListBudgets returns active budgets with their category name, oldest first.
		ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
		GetBudget(ctx context.Context, userID string, id int64) (core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, userID string, id int64, amount core.Money) (core.Budget, error)
		DeleteBudget(ctx context.Context, userID string, id int64) error
	}

	// UserLister enumerates users that own at least one category.
	UserLister interface {
		ListUsers(ctx context.Context) ([]string, error)
	}

	Store interface {
		CategoryStore
		ItemStore
		BudgetStore
		UserLister
	}
)
