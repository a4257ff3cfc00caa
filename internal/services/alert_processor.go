package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgie/internal/amqp"
	"budgie/internal/core"
	"budgie/internal/ledger"
	"budgie/internal/log"
)

// AlertProcessorConfig holds configuration for the alert processor
type AlertProcessorConfig struct {
	Interval time.Duration
}

// DefaultAlertProcessorConfig returns sensible defaults
func DefaultAlertProcessorConfig() AlertProcessorConfig {
	return AlertProcessorConfig{
		Interval: 5 * time.Minute,
	}
}

// AlertProcessor recomputes budget progress after ledger events and on a
// periodic sweep, logging every budget at warning or critical.
type AlertProcessor struct {
	budgets *BudgetService
	users   ledger.UserLister
	config  AlertProcessorConfig
	logger  *log.Logger
}

func NewAlertProcessor(budgets *BudgetService, users ledger.UserLister, config AlertProcessorConfig, logger *log.Logger) *AlertProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultAlertProcessorConfig().Interval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &AlertProcessor{
		budgets: budgets,
		users:   users,
		config:  config,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is the AMQP consumer callback. A returned error requeues the
// delivery.
func (p *AlertProcessor) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.UserID == "" {
		p.logger.WarnContext(ctx, "Dropping ledger event without user", "type", ev.Type)
		return nil
	}
	p.logger.DebugContext(ctx, "Ledger event received",
		log.NewFields().WithScan(ev.UserID, ev.ScanID).ToSlice()...)
	_, err := p.Check(ctx, ev.UserID)
	return err
}

// Check recomputes one user's progress and logs the alerting rows.
func (p *AlertProcessor) Check(ctx context.Context, userID string) ([]core.BudgetProgress, error) {
	alerts, err := p.budgets.Alerts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("budget alerts for %s: %w", userID, err)
	}
	for _, a := range alerts {
		p.logger.WarnContext(ctx, "Budget alert",
			log.FieldUserID, userID,
			log.FieldBudgetID, a.BudgetID,
			log.FieldCategory, a.CategoryName,
			log.FieldAlertLevel, string(a.AlertLevel),
			"spent_cents", a.Spent.Cents,
			"budget_cents", a.Budget.Cents,
			"percentage", a.Percentage)
	}
	return alerts, nil
}

// Sweep checks every known user. Per-user failures are collected and the
// sweep continues.
func (p *AlertProcessor) Sweep(ctx context.Context) error {
	users, err := p.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	var errs []error
	alerting := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		alerts, err := p.Check(ctx, u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(alerts) > 0 {
			alerting++
		}
	}
	p.logger.InfoContext(ctx, "Budget sweep completed", "users", len(users), "alerting", alerting)
	return errors.Join(errs...)
}

// Run sweeps immediately and then on every interval until ctx is done.
func (p *AlertProcessor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.logger.InfoContext(ctx, "Alert processor started", "interval", p.config.Interval)
	p.sweepAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "Alert processor stopped")
			return nil
		case <-ticker.C:
			p.sweepAndLog(ctx)
		}
	}
}

func (p *AlertProcessor) sweepAndLog(ctx context.Context) {
	if err := p.Sweep(ctx); err != nil && ctx.Err() == nil {
		p.logger.ErrorContext(ctx, "Budget sweep failed", log.NewFields().WithError(err).ToSlice()...)
	}
}
