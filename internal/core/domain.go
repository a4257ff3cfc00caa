package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Weekly  BudgetPeriod = "weekly"
	Monthly BudgetPeriod = "monthly"
)

type (
	BudgetPeriod string

	Money struct {
		Cents int64
	}

	// Category is a user-owned spending bucket. TotalSpent is stored, not
	// derived from the items.
	Category struct {
		ID         int64
		UserID     string
		Name       string
		TotalSpent Money
		CreatedAt  time.Time
	}

	SpendingItem struct {
		ID           int64
		UserID       string
		CategoryID   int64
		CategoryName string
		ItemName     string
		Amount       Money
		CreatedAt    time.Time
	}

	Budget struct {
		ID           int64
		UserID       string
		CategoryID   int64
		CategoryName string
		Amount       Money
		Period       BudgetPeriod
		Active       bool
		StartDate    time.Time
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeTotal     = errors.New("category total cannot be negative")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyUser         = errors.New("empty user id")
	ErrInvalidPeriod     = errors.New("invalid budget period")
)

// IsValid reports whether p is a known budget period.
func (p BudgetPeriod) IsValid() bool {
	return p == Weekly || p == Monthly
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.TotalSpent.Cents < 0 {
		return ErrNegativeTotal
	}
	return nil
}

// Validate checks the fields a caller supplies when adding an item. The
// amount may be negative (discount lines); the store guards the total.
func (s SpendingItem) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(s.CategoryName) == "" && s.CategoryID == 0 {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(s.ItemName) == "" {
		return ErrEmptyName
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUser
	}
	if b.CategoryID <= 0 {
		return ErrEmptyCategory
	}
	if b.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !b.Period.IsValid() {
		return ErrInvalidPeriod
	}
	return nil
}

// NormalizeCategoryName returns the key used for case-insensitive name matching.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GrandTotal sums the running totals of the given categories.
func GrandTotal(categories []Category) Money {
	var total int64
	for _, c := range categories {
		total += c.TotalSpent.Cents
	}
	return Money{Cents: total}
}

// CategoryNames returns the names in the order given.
func CategoryNames(categories []Category) []string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return names
}
