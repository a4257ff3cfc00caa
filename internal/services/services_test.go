package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"budgie/internal/amqp"
	"budgie/internal/core"
	"budgie/internal/ledger/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (f *fakePublisher) PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

func seededStore(t *testing.T) (*memory.Store, map[string]core.Category) {
	t.Helper()
	store := memory.NewSeeded("u1", "Food", "Household", "Transport")
	cats, err := store.ListCategories(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	byName := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		byName[c.Name] = c
	}
	return store, byName
}

func TestPublisherOrNil(t *testing.T) {
	var nilClient *amqp.Client
	if got := publisherOrNil(nilClient); got != nil {
		t.Errorf("typed nil client should become nil, got %T", got)
	}
	pub := &fakePublisher{}
	if got := publisherOrNil(pub); got != pub {
		t.Error("non-nil publisher should pass through")
	}
}

func TestLedgerService_Categories(t *testing.T) {
	store, cats := seededStore(t)
	svc := NewLedgerService(store, nil, nil)
	ctx := context.Background()

	if _, err := svc.SetTotal(ctx, "u1", cats["Food"].ID, core.Money{Cents: 1250}); err != nil {
		t.Fatalf("SetTotal() error = %v", err)
	}
	if _, err := svc.SetTotal(ctx, "u1", cats["Household"].ID, core.Money{Cents: 399}); err != nil {
		t.Fatalf("SetTotal() error = %v", err)
	}

	list, total, err := svc.Categories(ctx, "u1")
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(list) != 3 {
		t.Errorf("got %d categories, want 3", len(list))
	}
	if total.Cents != 1649 {
		t.Errorf("grand total = %d, want 1649", total.Cents)
	}
}

func TestLedgerService_Mutations(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		run       func(svc *LedgerService, cats map[string]core.Category) error
		wantErr   error
		wantEvent string
	}{
		{
			name: "create category",
			run: func(svc *LedgerService, _ map[string]core.Category) error {
				_, err := svc.CreateCategory(ctx, "u1", "  Pets ")
				return err
			},
			wantEvent: amqp.EventCategoryCreated,
		},
		{
			name: "blank category name",
			run: func(svc *LedgerService, _ map[string]core.Category) error {
				_, err := svc.CreateCategory(ctx, "u1", "  ")
				return err
			},
			wantErr: core.ErrEmptyName,
		},
		{
			name: "duplicate category ignores case",
			run: func(svc *LedgerService, _ map[string]core.Category) error {
				_, err := svc.CreateCategory(ctx, "u1", "food")
				return err
			},
			wantErr: core.ErrDuplicateCategory,
		},
		{
			name: "set total",
			run: func(svc *LedgerService, cats map[string]core.Category) error {
				_, err := svc.SetTotal(ctx, "u1", cats["Food"].ID, core.Money{Cents: 500})
				return err
			},
			wantEvent: amqp.EventTotalSet,
		},
		{
			name: "negative set total",
			run: func(svc *LedgerService, cats map[string]core.Category) error {
				_, err := svc.SetTotal(ctx, "u1", cats["Food"].ID, core.Money{Cents: -1})
				return err
			},
			wantErr: core.ErrNegativeTotal,
		},
		{
			name: "adjust below zero",
			run: func(svc *LedgerService, cats map[string]core.Category) error {
				_, err := svc.AdjustTotal(ctx, "u1", cats["Food"].ID, core.Money{Cents: -100})
				return err
			},
			wantErr: core.ErrNegativeTotal,
		},
		{
			name: "adjust other user's category",
			run: func(svc *LedgerService, cats map[string]core.Category) error {
				_, err := svc.AdjustTotal(ctx, "u2", cats["Food"].ID, core.Money{Cents: 100})
				return err
			},
			wantErr: core.ErrNotFound,
		},
		{
			name: "reset totals",
			run: func(svc *LedgerService, _ map[string]core.Category) error {
				return svc.ResetTotals(ctx, "u1")
			},
			wantEvent: amqp.EventTotalsReset,
		},
		{
			name: "add item by name",
			run: func(svc *LedgerService, _ map[string]core.Category) error {
				_, err := svc.AddItem(ctx, "u1", "FOOD", "Bread", core.Money{Cents: 250})
				return err
			},
			wantEvent: amqp.EventItemAdded,
		},
		{
			name: "add item unknown category",
			run: func(svc *LedgerService, _ map[string]core.Category) error {
				_, err := svc.AddItem(ctx, "u1", "Toys", "Ball", core.Money{Cents: 250})
				return err
			},
			wantErr: core.ErrNotFound,
		},
		{
			name: "add item without name",
			run: func(svc *LedgerService, _ map[string]core.Category) error {
				_, err := svc.AddItem(ctx, "u1", "Food", " ", core.Money{Cents: 250})
				return err
			},
			wantErr: core.ErrEmptyName,
		},
		{
			name: "create budget",
			run: func(svc *LedgerService, cats map[string]core.Category) error {
				_, err := svc.CreateBudget(ctx, "u1", cats["Food"].ID, core.Money{Cents: 10000})
				return err
			},
			wantEvent: amqp.EventBudgetChanged,
		},
		{
			name: "zero budget rejected on create",
			run: func(svc *LedgerService, cats map[string]core.Category) error {
				_, err := svc.CreateBudget(ctx, "u1", cats["Food"].ID, core.Money{})
				return err
			},
			wantErr: core.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cats := seededStore(t)
			pub := &fakePublisher{}
			svc := NewLedgerService(store, pub, nil)

			err := tt.run(svc, cats)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if len(pub.events) != 0 {
					t.Errorf("failed operation published %v", pub.types())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			types := pub.types()
			if len(types) != 1 || types[0] != tt.wantEvent {
				t.Errorf("events = %v, want [%s]", types, tt.wantEvent)
			}
		})
	}
}

func TestLedgerService_AddItemUpdatesTotal(t *testing.T) {
	store, cats := seededStore(t)
	svc := NewLedgerService(store, nil, nil)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, "u1", "household", "Soap", core.Money{Cents: 349})
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if item.CategoryName != "Household" {
		t.Errorf("CategoryName = %q, want canonical name", item.CategoryName)
	}

	got, err := store.GetCategory(ctx, "u1", cats["Household"].ID)
	if err != nil {
		t.Fatalf("GetCategory() error = %v", err)
	}
	if got.TotalSpent.Cents != 349 {
		t.Errorf("total = %d, want 349", got.TotalSpent.Cents)
	}

	items, err := svc.CategoryItems(ctx, "u1", cats["Household"].ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("CategoryItems() = %v, %v", items, err)
	}
	if _, err := svc.CategoryItems(ctx, "u2", cats["Household"].ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("CategoryItems for other user error = %v, want not found", err)
	}
}

func TestLedgerService_PublishFailureIsNotFatal(t *testing.T) {
	store, cats := seededStore(t)
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc := NewLedgerService(store, pub, nil)

	if _, err := svc.SetTotal(context.Background(), "u1", cats["Food"].ID, core.Money{Cents: 100}); err != nil {
		t.Fatalf("SetTotal() error = %v, publish failure should be swallowed", err)
	}
	if len(pub.events) != 1 {
		t.Errorf("expected one publish attempt, got %d", len(pub.events))
	}
}

func TestLedgerService_BudgetLifecycle(t *testing.T) {
	store, cats := seededStore(t)
	pub := &fakePublisher{}
	svc := NewLedgerService(store, pub, nil)
	ctx := context.Background()

	b, err := svc.CreateBudget(ctx, "u1", cats["Food"].ID, core.Money{Cents: 20000})
	if err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}
	if b.Period != core.Monthly || !b.Active {
		t.Errorf("budget = %+v, want active monthly", b)
	}

	if _, err := svc.UpdateBudget(ctx, "u1", b.ID, core.Money{Cents: -5}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative update error = %v, want invalid amount", err)
	}
	updated, err := svc.UpdateBudget(ctx, "u1", b.ID, core.Money{Cents: 0})
	if err != nil {
		t.Fatalf("UpdateBudget() error = %v", err)
	}
	if updated.Amount.Cents != 0 {
		t.Errorf("amount = %d, want 0", updated.Amount.Cents)
	}

	if err := svc.DeleteBudget(ctx, "u2", b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("delete by other user error = %v, want not found", err)
	}
	if err := svc.DeleteBudget(ctx, "u1", b.ID); err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	budgets, err := svc.Budgets(ctx, "u1")
	if err != nil || len(budgets) != 0 {
		t.Errorf("Budgets() = %v, %v; want empty", budgets, err)
	}
	if n := len(pub.events); n != 3 {
		t.Errorf("published %d events, want 3", n)
	}
}
