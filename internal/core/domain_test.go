package core

import (
	"errors"
	"testing"
)

func TestCategoryValidate(t *testing.T) {
	cases := []struct {
		c   Category
		err error
	}{
		{Category{UserID: "u1", Name: "Food"}, nil},
		{Category{UserID: "", Name: "Food"}, ErrEmptyUser},
		{Category{UserID: "u1", Name: "  "}, ErrEmptyName},
		{Category{UserID: "u1", Name: "Food", TotalSpent: Money{Cents: -1}}, ErrNegativeTotal},
	}
	for i, tc := range cases {
		if err := tc.c.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.err)
		}
	}
}

func TestSpendingItemValidate(t *testing.T) {
	good := SpendingItem{UserID: "u1", CategoryName: "Food", ItemName: "Milk", Amount: Money{Cents: -50}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok for discount line, got %v", err)
	}

	bads := []SpendingItem{
		{UserID: "", CategoryName: "Food", ItemName: "Milk"},
		{UserID: "u1", CategoryName: "", ItemName: "Milk"},
		{UserID: "u1", CategoryName: "Food", ItemName: ""},
	}
	for i, s := range bads {
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{UserID: "u1", CategoryID: 1, Amount: Money{Cents: 0}, Period: Monthly}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Budget{
		{UserID: "u1", CategoryID: 0, Amount: Money{Cents: 100}, Period: Monthly},
		{UserID: "u1", CategoryID: 1, Amount: Money{Cents: -1}, Period: Monthly},
		{UserID: "u1", CategoryID: 1, Amount: Money{Cents: 100}, Period: "daily"},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestGrandTotal(t *testing.T) {
	cats := []Category{
		{Name: "Food", TotalSpent: Money{Cents: 1649}},
		{Name: "Tax", TotalSpent: Money{Cents: 123}},
	}
	if got := GrandTotal(cats).Cents; got != 1772 {
		t.Fatalf("GrandTotal = %d, want 1772", got)
	}
	if got := GrandTotal(nil).Cents; got != 0 {
		t.Fatalf("GrandTotal(nil) = %d, want 0", got)
	}
}

func TestCategoryNotFoundErrorIsNotFound(t *testing.T) {
	err := error(&CategoryNotFoundError{Name: "Tax"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is(ErrNotFound)")
	}
	var cnf *CategoryNotFoundError
	if !errors.As(err, &cnf) || cnf.Name != "Tax" {
		t.Fatalf("errors.As failed: %v", err)
	}
	if err.Error() != `could not find the category "Tax"` {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
