package services

import (
	"context"
	"fmt"
	"strings"

	"budgie/internal/amqp"
	"budgie/internal/core"
	"budgie/internal/ledger"
	"budgie/internal/log"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService orchestrates manual ledger operations across the store and AMQP.
type LedgerService struct {
	store  ledger.Store
	events EventPublisher
	logger *log.Logger
}

func NewLedgerService(store ledger.Store, events EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		store:  store,
		events: publisherOrNil(events),
		logger: logger.WithComponent(log.ComponentLedger),
	}
}

// publisherOrNil turns a typed nil *amqp.Client into a nil interface.
func publisherOrNil(p EventPublisher) EventPublisher {
	if c, ok := p.(*amqp.Client); ok && c == nil {
		return nil
	}
	return p
}

// Store exposes the underlying store for read paths that need no events.
func (s *LedgerService) Store() ledger.Store { return s.store }

// Categories returns the user's categories and the sum of their totals.
func (s *LedgerService) Categories(ctx context.Context, userID string) ([]core.Category, core.Money, error) {
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, core.Money{}, fmt.Errorf("list categories: %w", err)
	}
	return cats, core.GrandTotal(cats), nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, userID, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyName
	}
	cat, err := s.store.CreateCategory(ctx, userID, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventCategoryCreated, userID, 0, cat.ID))
	return cat, nil
}

// SetTotal overwrites a category's running total.
func (s *LedgerService) SetTotal(ctx context.Context, userID string, id int64, total core.Money) (core.Category, error) {
	if total.Cents < 0 {
		return core.Category{}, core.ErrNegativeTotal
	}
	cat, err := s.store.SetCategoryTotal(ctx, userID, id, total)
	if err != nil {
		return core.Category{}, fmt.Errorf("set category total: %w", err)
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTotalSet, userID, total.Cents, id))
	return cat, nil
}

func (s *LedgerService) AdjustTotal(ctx context.Context, userID string, id int64, delta core.Money) (core.Category, error) {
	cat, err := s.store.AdjustCategoryTotal(ctx, userID, id, delta)
	if err != nil {
		return core.Category{}, fmt.Errorf("adjust category total: %w", err)
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTotalAdjusted, userID, delta.Cents, id))
	return cat, nil
}

func (s *LedgerService) ResetTotals(ctx context.Context, userID string) error {
	if err := s.store.ResetTotals(ctx, userID); err != nil {
		return fmt.Errorf("reset totals: %w", err)
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTotalsReset, userID, 0))
	return nil
}

func (s *LedgerService) CategoryItems(ctx context.Context, userID string, categoryID int64) ([]core.SpendingItem, error) {
	if _, err := s.store.GetCategory(ctx, userID, categoryID); err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	items, err := s.store.ListCategoryItems(ctx, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list category items: %w", err)
	}
	return items, nil
}

func (s *LedgerService) Items(ctx context.Context, userID string) ([]core.SpendingItem, error) {
	items, err := s.store.ListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// AddItem records a manually entered item against a category matched by name.
func (s *LedgerService) AddItem(ctx context.Context, userID, category, name string, amount core.Money) (core.SpendingItem, error) {
	item := core.SpendingItem{
		UserID:       userID,
		CategoryName: strings.TrimSpace(category),
		ItemName:     strings.TrimSpace(name),
		Amount:       amount,
	}
	if err := item.Validate(); err != nil {
		return core.SpendingItem{}, err
	}
	cat, err := s.store.FindCategory(ctx, userID, item.CategoryName)
	if err != nil {
		return core.SpendingItem{}, err
	}
	item.CategoryID = cat.ID
	item.CategoryName = cat.Name

	saved, err := s.store.AddSpendingItem(ctx, item)
	if err != nil {
		return core.SpendingItem{}, fmt.Errorf("add spending item: %w", err)
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventItemAdded, userID, saved.Amount.Cents, saved.CategoryID))
	return saved, nil
}

func (s *LedgerService) Budgets(ctx context.Context, userID string) ([]core.Budget, error) {
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// CreateBudget starts an active monthly budget today.
func (s *LedgerService) CreateBudget(ctx context.Context, userID string, categoryID int64, amount core.Money) (core.Budget, error) {
	if amount.Cents <= 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	b, err := s.store.CreateBudget(ctx, core.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Amount:     amount,
		Period:     core.Monthly,
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventBudgetChanged, userID, amount.Cents, categoryID))
	return b, nil
}

func (s *LedgerService) UpdateBudget(ctx context.Context, userID string, id int64, amount core.Money) (core.Budget, error) {
	if amount.Cents < 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	b, err := s.store.UpdateBudget(ctx, userID, id, amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventBudgetChanged, userID, amount.Cents, b.CategoryID))
	return b, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, userID string, id int64) error {
	b, err := s.store.GetBudget(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("get budget: %w", err)
	}
	if err := s.store.DeleteBudget(ctx, userID, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventBudgetChanged, userID, 0, b.CategoryID))
	return nil
}

// publish is best-effort: the store write already succeeded.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.events == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping ledger event", "type", ev.Type)
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.NewFields().WithOperation(log.OpPublish).WithError(err).ToSlice()...)
	}
}
