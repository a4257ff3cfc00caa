package services

import (
	"context"
	"errors"
	"testing"

	"budgie/internal/core"
)

func TestBudgetService_Progress(t *testing.T) {
	store, cats := seededStore(t)
	ctx := context.Background()

	setup := []struct {
		category string
		spent    int64
		budget   int64
	}{
		{"Food", 9000, 10000},      // 90% critical
		{"Household", 4000, 5000},  // 80% warning
		{"Transport", 1000, 10000}, // 10% safe
	}
	for _, s := range setup {
		id := cats[s.category].ID
		if _, err := store.SetCategoryTotal(ctx, "u1", id, core.Money{Cents: s.spent}); err != nil {
			t.Fatalf("SetCategoryTotal(%s) error = %v", s.category, err)
		}
		if _, err := store.CreateBudget(ctx, core.Budget{UserID: "u1", CategoryID: id, Amount: core.Money{Cents: s.budget}}); err != nil {
			t.Fatalf("CreateBudget(%s) error = %v", s.category, err)
		}
	}

	svc := NewBudgetService(store)
	rows, err := svc.Progress(ctx, "u1")
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	want := map[string]core.AlertLevel{
		"Food":      core.AlertCritical,
		"Household": core.AlertWarning,
		"Transport": core.AlertSafe,
	}
	for _, r := range rows {
		if r.AlertLevel != want[r.CategoryName] {
			t.Errorf("%s alert = %s, want %s", r.CategoryName, r.AlertLevel, want[r.CategoryName])
		}
	}
	if rows[2].Remaining.Cents != 9000 {
		t.Errorf("Transport remaining = %d, want 9000", rows[2].Remaining.Cents)
	}

	alerts, err := svc.Alerts(ctx, "u1")
	if err != nil {
		t.Fatalf("Alerts() error = %v", err)
	}
	if len(alerts) != 2 {
		t.Errorf("got %d alerts, want 2", len(alerts))
	}

	other, err := svc.Progress(ctx, "u2")
	if err != nil || len(other) != 0 {
		t.Errorf("Progress(u2) = %v, %v; want empty", other, err)
	}
}

type failingReader struct{ err error }

func (f failingReader) ListCategories(context.Context, string) ([]core.Category, error) {
	return nil, f.err
}

func (f failingReader) ListBudgets(context.Context, string) ([]core.Budget, error) {
	return []core.Budget{{ID: 1, CategoryID: 1, Amount: core.Money{Cents: 100}, Active: true}}, nil
}

func TestBudgetService_ProgressStoreError(t *testing.T) {
	boom := errors.New("db locked")
	svc := NewBudgetService(failingReader{err: boom})
	if _, err := svc.Progress(context.Background(), "u1"); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped store error", err)
	}
}
