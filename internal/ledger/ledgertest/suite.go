// Package ledgertest holds behaviour tests shared by every ledger.Store
// implementation.
package ledgertest

import (
	"context"
	"errors"
	"testing"

	"budgie/internal/core"
	"budgie/internal/ledger"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) ledger.Store

// Run exercises the store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s ledger.Store)
	}{
		{"CreateAndListCategories", testCreateAndListCategories},
		{"DuplicateCategory", testDuplicateCategory},
		{"FindCategory", testFindCategory},
		{"AddSpendingItem", testAddSpendingItem},
		{"AddSpendingItemNegativeTotal", testAddSpendingItemNegativeTotal},
		{"SetAdjustResetTotals", testSetAdjustResetTotals},
		{"ItemsNewestFirst", testItemsNewestFirst},
		{"Budgets", testBudgets},
		{"UserScoping", testUserScoping},
		{"ListUsers", testListUsers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func mustCategory(t *testing.T, s ledger.Store, user, name string) core.Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), user, name)
	if err != nil {
		t.Fatalf("CreateCategory(%s, %s) error = %v", user, name, err)
	}
	return c
}

func mustAdd(t *testing.T, s ledger.Store, item core.SpendingItem) core.SpendingItem {
	t.Helper()
	got, err := s.AddSpendingItem(context.Background(), item)
	if err != nil {
		t.Fatalf("AddSpendingItem(%+v) error = %v", item, err)
	}
	return got
}

func testCreateAndListCategories(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustCategory(t, s, "u1", "Food")
	c := mustCategory(t, s, "u1", "  Bills ")
	if c.Name != "Bills" || c.TotalSpent.Cents != 0 || c.ID == 0 {
		t.Errorf("created = %+v", c)
	}

	cats, err := s.ListCategories(ctx, "u1")
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) != 2 || cats[0].Name != "Bills" || cats[1].Name != "Food" {
		t.Errorf("ListCategories() = %+v, want Bills, Food", cats)
	}

	if _, err := s.CreateCategory(ctx, "u1", "  "); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("blank name error = %v, want ErrEmptyName", err)
	}
}

func testDuplicateCategory(t *testing.T, s ledger.Store) {
	mustCategory(t, s, "u1", "Food")
	if _, err := s.CreateCategory(context.Background(), "u1", "FOOD"); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Errorf("duplicate error = %v, want ErrDuplicateCategory", err)
	}
	mustCategory(t, s, "u2", "Food")
}

func testFindCategory(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	want := mustCategory(t, s, "u1", "Groceries")

	for _, name := range []string{"Groceries", "groceries", " GROCERIES "} {
		got, err := s.FindCategory(ctx, "u1", name)
		if err != nil || got.ID != want.ID {
			t.Errorf("FindCategory(%q) = %+v, %v", name, got, err)
		}
	}

	_, err := s.FindCategory(ctx, "u1", "Groc")
	var nf *core.CategoryNotFoundError
	if !errors.As(err, &nf) || !errors.Is(err, core.ErrNotFound) {
		t.Errorf("partial name error = %v, want CategoryNotFoundError", err)
	}
}

func testAddSpendingItem(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "u1", "Food")

	a := mustAdd(t, s, core.SpendingItem{UserID: "u1", CategoryID: food.ID, ItemName: "Milk", Amount: core.Money{Cents: 349}})
	if a.ID == 0 || a.CategoryName != "Food" || a.CreatedAt.IsZero() {
		t.Errorf("added = %+v", a)
	}
	mustAdd(t, s, core.SpendingItem{UserID: "u1", CategoryName: "food", ItemName: "Bread", Amount: core.Money{Cents: 250}})

	got, err := s.GetCategory(ctx, "u1", food.ID)
	if err != nil {
		t.Fatalf("GetCategory() error = %v", err)
	}
	if got.TotalSpent.Cents != 599 {
		t.Errorf("total = %d, want 599", got.TotalSpent.Cents)
	}

	_, err = s.AddSpendingItem(ctx, core.SpendingItem{UserID: "u1", CategoryName: "Tax", ItemName: "Sales Tax", Amount: core.Money{Cents: 123}})
	var nf *core.CategoryNotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("unknown category error = %v, want CategoryNotFoundError", err)
	}
	if _, err := s.AddSpendingItem(ctx, core.SpendingItem{UserID: "u1", CategoryID: food.ID, Amount: core.Money{Cents: 1}}); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("missing name error = %v, want ErrEmptyName", err)
	}
}

func testAddSpendingItemNegativeTotal(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "u1", "Food")
	mustAdd(t, s, core.SpendingItem{UserID: "u1", CategoryID: food.ID, ItemName: "Cheese", Amount: core.Money{Cents: 500}})
	mustAdd(t, s, core.SpendingItem{UserID: "u1", CategoryID: food.ID, ItemName: "Coupon", Amount: core.Money{Cents: -200}})

	_, err := s.AddSpendingItem(ctx, core.SpendingItem{UserID: "u1", CategoryID: food.ID, ItemName: "Refund", Amount: core.Money{Cents: -1000}})
	if !errors.Is(err, core.ErrNegativeTotal) {
		t.Fatalf("error = %v, want ErrNegativeTotal", err)
	}

	got, _ := s.GetCategory(ctx, "u1", food.ID)
	if got.TotalSpent.Cents != 300 {
		t.Errorf("total = %d, want 300", got.TotalSpent.Cents)
	}
	items, _ := s.ListCategoryItems(ctx, "u1", food.ID)
	if len(items) != 2 {
		t.Errorf("rejected item was stored: %+v", items)
	}
}

func testSetAdjustResetTotals(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "u1", "Food")
	bills := mustCategory(t, s, "u1", "Bills")

	c, err := s.SetCategoryTotal(ctx, "u1", food.ID, core.Money{Cents: 1000})
	if err != nil || c.TotalSpent.Cents != 1000 {
		t.Fatalf("SetCategoryTotal() = %+v, %v", c, err)
	}
	if _, err := s.SetCategoryTotal(ctx, "u1", food.ID, core.Money{Cents: -1}); !errors.Is(err, core.ErrNegativeTotal) {
		t.Errorf("negative set error = %v", err)
	}

	c, err = s.AdjustCategoryTotal(ctx, "u1", food.ID, core.Money{Cents: -400})
	if err != nil || c.TotalSpent.Cents != 600 {
		t.Fatalf("AdjustCategoryTotal() = %+v, %v", c, err)
	}
	if _, err := s.AdjustCategoryTotal(ctx, "u1", food.ID, core.Money{Cents: -601}); !errors.Is(err, core.ErrNegativeTotal) {
		t.Errorf("adjust below zero error = %v", err)
	}
	if _, err := s.AdjustCategoryTotal(ctx, "u1", bills.ID, core.Money{Cents: 250}); err != nil {
		t.Fatalf("AdjustCategoryTotal(bills) error = %v", err)
	}

	if err := s.ResetTotals(ctx, "u1"); err != nil {
		t.Fatalf("ResetTotals() error = %v", err)
	}
	cats, _ := s.ListCategories(ctx, "u1")
	if core.GrandTotal(cats).Cents != 0 {
		t.Errorf("grand total after reset = %d", core.GrandTotal(cats).Cents)
	}
}

func testItemsNewestFirst(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "u1", "Food")
	bills := mustCategory(t, s, "u1", "Bills")
	mustAdd(t, s, core.SpendingItem{UserID: "u1", CategoryID: food.ID, ItemName: "first", Amount: core.Money{Cents: 1}})
	mustAdd(t, s, core.SpendingItem{UserID: "u1", CategoryID: bills.ID, ItemName: "second", Amount: core.Money{Cents: 2}})
	mustAdd(t, s, core.SpendingItem{UserID: "u1", CategoryID: food.ID, ItemName: "third", Amount: core.Money{Cents: 3}})

	all, err := s.ListItems(ctx, "u1")
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(all) != 3 || all[0].ItemName != "third" || all[2].ItemName != "first" {
		t.Errorf("ListItems() order = %v", names(all))
	}
	if all[1].CategoryName != "Bills" {
		t.Errorf("item category name = %q", all[1].CategoryName)
	}

	foodItems, err := s.ListCategoryItems(ctx, "u1", food.ID)
	if err != nil {
		t.Fatalf("ListCategoryItems() error = %v", err)
	}
	if len(foodItems) != 2 || foodItems[0].ItemName != "third" {
		t.Errorf("ListCategoryItems() = %v", names(foodItems))
	}
}

func names(items []core.SpendingItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemName
	}
	return out
}

func testBudgets(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "u1", "Food")
	bills := mustCategory(t, s, "u1", "Bills")

	if _, err := s.CreateBudget(ctx, core.Budget{UserID: "u1", CategoryID: food.ID}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}

	b1, err := s.CreateBudget(ctx, core.Budget{UserID: "u1", CategoryID: food.ID, Amount: core.Money{Cents: 40000}})
	if err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}
	if !b1.Active || b1.Period != core.Monthly || b1.StartDate.IsZero() || b1.CategoryName != "Food" {
		t.Errorf("created budget = %+v", b1)
	}
	b2, err := s.CreateBudget(ctx, core.Budget{UserID: "u1", CategoryID: bills.ID, Amount: core.Money{Cents: 10000}})
	if err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}

	list, err := s.ListBudgets(ctx, "u1")
	if err != nil {
		t.Fatalf("ListBudgets() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != b1.ID || list[1].CategoryName != "Bills" {
		t.Errorf("ListBudgets() = %+v", list)
	}

	up, err := s.UpdateBudget(ctx, "u1", b2.ID, core.Money{Cents: 12500})
	if err != nil || up.Amount.Cents != 12500 || up.Period != core.Monthly {
		t.Errorf("UpdateBudget() = %+v, %v", up, err)
	}
	if up.UpdatedAt.Before(b2.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v < %v", up.UpdatedAt, b2.UpdatedAt)
	}
	if _, err := s.UpdateBudget(ctx, "u1", b2.ID, core.Money{Cents: -1}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative update error = %v", err)
	}

	if err := s.DeleteBudget(ctx, "u1", b1.ID); err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	if _, err := s.GetBudget(ctx, "u1", b1.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetBudget after delete error = %v", err)
	}
	if err := s.DeleteBudget(ctx, "u1", b1.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete error = %v", err)
	}
}

func testUserScoping(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mine := mustCategory(t, s, "u1", "Food")
	mustAdd(t, s, core.SpendingItem{UserID: "u1", CategoryID: mine.ID, ItemName: "Milk", Amount: core.Money{Cents: 100}})
	budget, err := s.CreateBudget(ctx, core.Budget{UserID: "u1", CategoryID: mine.ID, Amount: core.Money{Cents: 500}})
	if err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}

	checks := map[string]error{}
	_, checks["GetCategory"] = s.GetCategory(ctx, "u2", mine.ID)
	_, checks["SetCategoryTotal"] = s.SetCategoryTotal(ctx, "u2", mine.ID, core.Money{})
	_, checks["AdjustCategoryTotal"] = s.AdjustCategoryTotal(ctx, "u2", mine.ID, core.Money{Cents: 1})
	_, checks["AddSpendingItem"] = s.AddSpendingItem(ctx, core.SpendingItem{UserID: "u2", CategoryID: mine.ID, ItemName: "x", Amount: core.Money{Cents: 1}})
	_, checks["ListCategoryItems"] = s.ListCategoryItems(ctx, "u2", mine.ID)
	_, checks["CreateBudget"] = s.CreateBudget(ctx, core.Budget{UserID: "u2", CategoryID: mine.ID, Amount: core.Money{Cents: 1}})
	_, checks["GetBudget"] = s.GetBudget(ctx, "u2", budget.ID)
	_, checks["UpdateBudget"] = s.UpdateBudget(ctx, "u2", budget.ID, core.Money{Cents: 1})
	checks["DeleteBudget"] = s.DeleteBudget(ctx, "u2", budget.ID)
	_, checks["FindCategory"] = s.FindCategory(ctx, "u2", "Food")

	for op, err := range checks {
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("%s across users error = %v, want ErrNotFound", op, err)
		}
	}

	if err := s.ResetTotals(ctx, "u2"); err != nil {
		t.Fatalf("ResetTotals(u2) error = %v", err)
	}
	got, _ := s.GetCategory(ctx, "u1", mine.ID)
	if got.TotalSpent.Cents != 100 {
		t.Errorf("other user's reset changed total to %d", got.TotalSpent.Cents)
	}
	if items, _ := s.ListItems(ctx, "u2"); len(items) != 0 {
		t.Errorf("ListItems(u2) = %v", names(items))
	}
	if cats, _ := s.ListCategories(ctx, "u2"); len(cats) != 0 {
		t.Errorf("ListCategories(u2) = %+v", cats)
	}
	if budgets, _ := s.ListBudgets(ctx, "u2"); len(budgets) != 0 {
		t.Errorf("ListBudgets(u2) = %+v", budgets)
	}
}

func testListUsers(t *testing.T, s ledger.Store) {
	mustCategory(t, s, "bob", "Food")
	mustCategory(t, s, "alice", "Food")
	mustCategory(t, s, "alice", "Bills")

	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Errorf("ListUsers() = %v", users)
	}
}
