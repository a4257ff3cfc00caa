// Package memory is an in-process ledger store used for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"budgie/internal/core"
	"budgie/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	nextID  int64
	cats    map[int64]*core.Category
	items   []core.SpendingItem
	budgets map[int64]*core.Budget
}

func New() *Store {
	return &Store{
		now:     time.Now,
		cats:    make(map[int64]*core.Category),
		budgets: make(map[int64]*core.Budget),
	}
}

// NewSeeded creates a store with the given categories for user.
func NewSeeded(userID string, names ...string) *Store {
	s := New()
	for _, n := range dedupe(names) {
		_, _ = s.CreateCategory(context.Background(), userID, n)
	}
	return s
}

// WithClock replaces the time source; used by tests that check ordering.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.cats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, userID string, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.category(userID, id)
	if err != nil {
		return core.Category{}, err
	}
	return *c, nil
}

func (s *Store) category(userID string, id int64) (*core.Category, error) {
	c, ok := s.cats[id]
	if !ok || c.UserID != userID {
		return nil, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) byName(userID, name string) *core.Category {
	key := core.NormalizeCategoryName(name)
	for _, c := range s.cats {
		if c.UserID == userID && core.NormalizeCategoryName(c.Name) == key {
			return c
		}
	}
	return nil
}

func (s *Store) FindCategory(_ context.Context, userID, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.byName(userID, name)
	if c == nil {
		return core.Category{}, &core.CategoryNotFoundError{Name: name}
	}
	return *c, nil
}

func (s *Store) CreateCategory(_ context.Context, userID, name string) (core.Category, error) {
	c := core.Category{UserID: userID, Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byName(userID, c.Name) != nil {
		return core.Category{}, core.ErrDuplicateCategory
	}
	c.ID = s.id()
	c.CreatedAt = s.now()
	s.cats[c.ID] = &c
	return c, nil
}

func (s *Store) SetCategoryTotal(_ context.Context, userID string, id int64, total core.Money) (core.Category, error) {
	if total.Cents < 0 {
		return core.Category{}, core.ErrNegativeTotal
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.category(userID, id)
	if err != nil {
		return core.Category{}, err
	}
	c.TotalSpent = total
	return *c, nil
}

func (s *Store) AdjustCategoryTotal(_ context.Context, userID string, id int64, delta core.Money) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.category(userID, id)
	if err != nil {
		return core.Category{}, err
	}
	next := c.TotalSpent.Add(delta)
	if next.Cents < 0 {
		return core.Category{}, core.ErrNegativeTotal
	}
	c.TotalSpent = next
	return *c, nil
}

func (s *Store) ResetTotals(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.UserID == userID {
			c.TotalSpent = core.Money{}
		}
	}
	return nil
}

func (s *Store) AddSpendingItem(_ context.Context, item core.SpendingItem) (core.SpendingItem, error) {
	item.ItemName = strings.TrimSpace(item.ItemName)
	if err := item.Validate(); err != nil {
		return core.SpendingItem{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var c *core.Category
	if item.CategoryID != 0 {
		found, err := s.category(item.UserID, item.CategoryID)
		if err != nil {
			return core.SpendingItem{}, err
		}
		c = found
	} else if c = s.byName(item.UserID, item.CategoryName); c == nil {
		return core.SpendingItem{}, &core.CategoryNotFoundError{Name: item.CategoryName}
	}

	next := c.TotalSpent.Add(item.Amount)
	if next.Cents < 0 {
		return core.SpendingItem{}, core.ErrNegativeTotal
	}
	c.TotalSpent = next

	item.ID = s.id()
	item.CategoryID = c.ID
	item.CategoryName = c.Name
	item.CreatedAt = s.now()
	s.items = append(s.items, item)
	return item, nil
}

func (s *Store) ListCategoryItems(_ context.Context, userID string, categoryID int64) ([]core.SpendingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.category(userID, categoryID); err != nil {
		return nil, err
	}
	return s.filterItems(func(it core.SpendingItem) bool {
		return it.UserID == userID && it.CategoryID == categoryID
	}), nil
}

func (s *Store) ListItems(_ context.Context, userID string) ([]core.SpendingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterItems(func(it core.SpendingItem) bool { return it.UserID == userID }), nil
}

// filterItems returns matches newest first. Items are appended in creation
// order, so walking backwards is enough.
func (s *Store) filterItems(keep func(core.SpendingItem) bool) []core.SpendingItem {
	var out []core.SpendingItem
	for i := len(s.items) - 1; i >= 0; i-- {
		if keep(s.items[i]) {
			it := s.items[i]
			if c, ok := s.cats[it.CategoryID]; ok {
				it.CategoryName = c.Name
			}
			out = append(out, it)
		}
	}
	return out
}

func (s *Store) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.UserID == userID && b.Active {
			out = append(out, s.withCategory(*b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) withCategory(b core.Budget) core.Budget {
	if c, ok := s.cats[b.CategoryID]; ok {
		b.CategoryName = c.Name
	}
	return b
}

func (s *Store) budget(userID string, id int64) (*core.Budget, error) {
	b, ok := s.budgets[id]
	if !ok || b.UserID != userID {
		return nil, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, userID string, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.budget(userID, id)
	if err != nil {
		return core.Budget{}, err
	}
	return s.withCategory(*b), nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if b.Period == "" {
		b.Period = core.Monthly
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.Amount.Cents <= 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.category(b.UserID, b.CategoryID); err != nil {
		return core.Budget{}, err
	}
	now := s.now()
	b.ID = s.id()
	b.Active = true
	if b.StartDate.IsZero() {
		b.StartDate = truncateDay(now)
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	s.budgets[b.ID] = &b
	return s.withCategory(b), nil
}

func (s *Store) UpdateBudget(_ context.Context, userID string, id int64, amount core.Money) (core.Budget, error) {
	if amount.Cents < 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.budget(userID, id)
	if err != nil {
		return core.Budget{}, err
	}
	b.Amount = amount
	b.Period = core.Monthly
	b.UpdatedAt = s.now()
	return s.withCategory(*b), nil
}

func (s *Store) DeleteBudget(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.budget(userID, id); err != nil {
		return err
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, c := range s.cats {
		if _, ok := seen[c.UserID]; !ok {
			seen[c.UserID] = struct{}{}
			out = append(out, c.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := core.NormalizeCategoryName(v)
		if v == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
