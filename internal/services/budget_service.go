package services

import (
	"context"
	"fmt"

	"budgie/internal/core"
	"budgie/internal/ledger"
)

// BudgetReader is the slice of the store budget progress is computed from.
type BudgetReader interface {
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
}

var _ BudgetReader = (ledger.Store)(nil)

// BudgetService derives progress rows from active budgets and the current
// category totals. Nothing it returns is stored.
type BudgetService struct {
	store BudgetReader
}

func NewBudgetService(store BudgetReader) *BudgetService {
	return &BudgetService{store: store}
}

// Progress returns one row per active budget, in budget order.
func (s *BudgetService) Progress(ctx context.Context, userID string) ([]core.BudgetProgress, error) {
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return []core.BudgetProgress{}, nil
	}
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	totals := make(map[int64]core.Category, len(cats))
	for _, c := range cats {
		totals[c.ID] = c
	}

	rows := make([]core.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		if !b.Active {
			continue
		}
		cat := totals[b.CategoryID]
		if b.CategoryName == "" {
			b.CategoryName = cat.Name
		}
		rows = append(rows, core.ProgressFor(b, cat.TotalSpent))
	}
	return rows, nil
}

// Alerts returns only the warning and critical rows.
func (s *BudgetService) Alerts(ctx context.Context, userID string) ([]core.BudgetProgress, error) {
	rows, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.FilterAlerts(rows), nil
}
