package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"budgie/internal/amqp"
	"budgie/internal/core"
	"budgie/internal/ledger/memory"
	"budgie/internal/log"
)

func bufferLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
}

func alertingStore(t *testing.T) *memory.Store {
	t.Helper()
	store, cats := seededStore(t)
	ctx := context.Background()
	if _, err := store.SetCategoryTotal(ctx, "u1", cats["Food"].ID, core.Money{Cents: 9500}); err != nil {
		t.Fatalf("SetCategoryTotal() error = %v", err)
	}
	if _, err := store.CreateBudget(ctx, core.Budget{UserID: "u1", CategoryID: cats["Food"].ID, Amount: core.Money{Cents: 10000}}); err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}
	if _, err := store.CreateCategory(ctx, "u2", "Food"); err != nil {
		t.Fatalf("CreateCategory(u2) error = %v", err)
	}
	return store
}

func TestDefaultAlertProcessorConfig(t *testing.T) {
	if got := DefaultAlertProcessorConfig().Interval; got != 5*time.Minute {
		t.Errorf("Interval = %v, want 5m", got)
	}
	p := NewAlertProcessor(nil, nil, AlertProcessorConfig{}, nil)
	if p.config.Interval != 5*time.Minute {
		t.Errorf("zero interval should default, got %v", p.config.Interval)
	}
}

func TestAlertProcessor_HandleEvent(t *testing.T) {
	store := alertingStore(t)
	var buf bytes.Buffer
	p := NewAlertProcessor(NewBudgetService(store), store, DefaultAlertProcessorConfig(), bufferLogger(&buf))

	ev := amqp.NewLedgerEvent(amqp.EventItemAdded, "u1", 500, 1)
	if err := p.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Budget alert") || !strings.Contains(out, "alert_level=critical") {
		t.Errorf("expected a critical alert line, got:\n%s", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("alert should log at warn, got:\n%s", out)
	}

	buf.Reset()
	if err := p.HandleEvent(context.Background(), &amqp.LedgerEvent{Type: amqp.EventItemAdded}); err != nil {
		t.Errorf("event without user should be dropped, got %v", err)
	}
}

type brokenUsers struct{}

func (brokenUsers) ListUsers(context.Context) ([]string, error) {
	return nil, errors.New("connection reset")
}

func TestAlertProcessor_Sweep(t *testing.T) {
	store := alertingStore(t)

	t.Run("checks every user", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewAlertProcessor(NewBudgetService(store), store, DefaultAlertProcessorConfig(), bufferLogger(&buf))
		if err := p.Sweep(context.Background()); err != nil {
			t.Fatalf("Sweep() error = %v", err)
		}
		out := buf.String()
		if strings.Count(out, "Budget alert") != 1 {
			t.Errorf("expected one alert line, got:\n%s", out)
		}
		if !strings.Contains(out, "users=2") || !strings.Contains(out, "alerting=1") {
			t.Errorf("summary missing, got:\n%s", out)
		}
	})

	t.Run("user listing failure", func(t *testing.T) {
		p := NewAlertProcessor(NewBudgetService(store), brokenUsers{}, DefaultAlertProcessorConfig(), nil)
		if err := p.Sweep(context.Background()); err == nil {
			t.Error("expected an error when users cannot be listed")
		}
	})
}

func TestAlertProcessor_RunStopsWithContext(t *testing.T) {
	store := alertingStore(t)
	p := NewAlertProcessor(NewBudgetService(store), store, AlertProcessorConfig{Interval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
