package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"budgie/internal/amqp"
	"budgie/internal/cache"
	"budgie/internal/core"
	"budgie/internal/ledger"
	"budgie/internal/log"
	"budgie/internal/pipeline"
)

const (
	defaultDedupSize   = 256
	defaultScanTimeout = 2 * time.Minute
)

// ScanResult is a pipeline result plus the budget view refreshed by the run.
type ScanResult struct {
	*pipeline.Result
	Budgets []core.BudgetProgress
	// Duplicate is set when the result was served from the repeat-upload
	// window and nothing was applied.
	Duplicate bool
}

type ReceiptServiceConfig struct {
	Pipeline *pipeline.Pipeline
	Store    ledger.CategoryStore
	Budgets  *BudgetService
	Events   EventPublisher

	// DedupTTL is how long an identical upload returns the earlier result.
	// Zero disables the window.
	DedupTTL  time.Duration
	DedupSize int
	// Timeout bounds a shared pipeline run. It is detached from any single
	// caller, so one caller giving up does not fail the others.
	Timeout time.Duration
	// Caches, when set, sweeps the dedup window in the background.
	Caches *cache.Manager
	Logger *log.Logger
}

// ReceiptService runs receipt scans for users. Concurrent uploads of the
// same image by the same user share one pipeline run.
type ReceiptService struct {
	pipeline *pipeline.Pipeline
	store    ledger.CategoryStore
	budgets  *BudgetService
	events   EventPublisher
	group    singleflight.Group
	recent   *cache.LRUCache[*ScanResult]
	timeout  time.Duration
	newID    func() string
	logger   *log.Logger
}

func NewReceiptService(cfg ReceiptServiceConfig) (*ReceiptService, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("receipt service: pipeline is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("receipt service: store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultScanTimeout
	}
	s := &ReceiptService{
		pipeline: cfg.Pipeline,
		store:    cfg.Store,
		budgets:  cfg.Budgets,
		events:   publisherOrNil(cfg.Events),
		timeout:  cfg.Timeout,
		newID:    uuid.NewString,
		logger:   cfg.Logger.WithComponent(log.ComponentPipeline),
	}
	if cfg.DedupTTL > 0 {
		size := cfg.DedupSize
		if size <= 0 {
			size = defaultDedupSize
		}
		s.recent = cache.NewLRUCache[*ScanResult](size, cfg.DedupTTL)
		if cfg.Caches != nil {
			cfg.Caches.Register(s.recent)
		}
	}
	return s, nil
}

// Scan runs the pipeline for one uploaded image. On an OCR, LLM or format
// failure the returned result still carries whatever text was recovered.
func (s *ReceiptService) Scan(ctx context.Context, userID string, image []byte) (*ScanResult, error) {
	if userID == "" {
		return nil, core.ErrEmptyUser
	}
	key := scanKey(userID, image)
	if cached, ok := s.lookup(key); ok {
		s.logger.InfoContext(ctx, "Duplicate receipt upload",
			log.NewFields().WithScan(userID, cached.ScanID).ToSlice()...)
		return cached, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		if cached, ok := s.lookup(key); ok {
			return cached, nil
		}
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.run(runCtx, userID, key, image)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		out, _ := r.Val.(*ScanResult)
		return out, r.Err
	}
}

func (s *ReceiptService) run(ctx context.Context, userID, key string, image []byte) (*ScanResult, error) {
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	out := &ScanResult{}
	refresh := func(ctx context.Context) error {
		if s.budgets == nil {
			return nil
		}
		rows, err := s.budgets.Progress(ctx, userID)
		if err != nil {
			return err
		}
		out.Budgets = rows
		return nil
	}

	res, err := s.pipeline.Run(ctx, pipeline.Input{
		UserID:     userID,
		ScanID:     s.newID(),
		Image:      image,
		Categories: core.CategoryNames(cats),
		Refresh:    refresh,
	})
	out.Result = res
	if err != nil {
		return out, err
	}

	if s.recent != nil && !retryable(res) {
		s.recent.Set(key, out)
	}
	if res.Changed() {
		s.publish(ctx, amqp.NewLedgerEvent(amqp.EventReceiptApplied, userID, res.AppliedTotal().Cents, res.CategoryIDs()...).WithScan(res.ScanID))
	}
	return out, nil
}

// retryable reports whether a re-upload could apply items this run skipped,
// for example after the user creates the missing category.
func retryable(res *pipeline.Result) bool {
	for _, sk := range res.Skipped {
		if sk.Reason == core.SkipCategoryNotFound || sk.Reason == core.SkipPersistence {
			return true
		}
	}
	return false
}

func (s *ReceiptService) lookup(key string) (*ScanResult, bool) {
	if s.recent == nil {
		return nil, false
	}
	cached, ok := s.recent.Get(key)
	if !ok {
		return nil, false
	}
	dup := *cached
	dup.Duplicate = true
	return &dup, true
}

func (s *ReceiptService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish receipt event",
			log.NewFields().WithScan(ev.UserID, ev.ScanID).WithOperation(log.OpPublish).WithError(err).ToSlice()...)
	}
}

// scanKey identifies an upload by user and image content.
func scanKey(userID string, image []byte) string {
	sum := sha256.Sum256(image)
	return userID + ":" + hex.EncodeToString(sum[:])
}
