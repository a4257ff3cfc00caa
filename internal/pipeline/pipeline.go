// Package pipeline turns a receipt image into ledger updates: OCR, prompt,
// LLM reply, JSON recovery, per-item validation, then one budget refresh.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"budgie/internal/core"
	"budgie/internal/llm"
	"budgie/internal/log"
	"budgie/internal/ocr"
)

// Policy decides what an unmatched category name does to a run.
type Policy string

const (
	// PolicySkip drops the item and keeps going.
	PolicySkip Policy = "skip"
	// PolicyAbort fails the run before any ledger mutation.
	PolicyAbort Policy = "abort"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyAbort:
		return PolicyAbort, nil
	}
	return "", fmt.Errorf("unknown unmatched category policy %q (want skip or abort)", s)
}

// Ledger is the slice of the store the pipeline writes through.
type Ledger interface {
	// FindCategory matches name case-insensitively within the user's
	// categories and returns *core.CategoryNotFoundError on a miss.
	FindCategory(ctx context.Context, userID, name string) (core.Category, error)
	// AddSpendingItem inserts the item and increments the category total
	// atomically.
	AddSpendingItem(ctx context.Context, item core.SpendingItem) (core.SpendingItem, error)
}

// RefreshFunc recomputes derived budget views once per run.
type RefreshFunc func(ctx context.Context) error

type Config struct {
	OCR       ocr.Gateway
	LLM       llm.Gateway
	Ledger    Ledger
	Policy    Policy
	Downscale bool
	Logger    *log.Logger
}

type Pipeline struct {
	ocr       ocr.Gateway
	llm       llm.Gateway
	ledger    Ledger
	policy    Policy
	downscale bool
	logger    *log.Logger
	events    *log.StructuredLogger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.OCR == nil {
		return nil, errors.New("pipeline: OCR gateway is required")
	}
	if cfg.LLM == nil {
		return nil, errors.New("pipeline: LLM gateway is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("pipeline: ledger is required")
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicySkip
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	logger := cfg.Logger.WithComponent(log.ComponentPipeline)
	return &Pipeline{
		ocr:       cfg.OCR,
		llm:       cfg.LLM,
		ledger:    cfg.Ledger,
		policy:    cfg.Policy,
		downscale: cfg.Downscale,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}, nil
}

func (p *Pipeline) Policy() Policy { return p.policy }

// Input is one receipt submission.
type Input struct {
	UserID     string
	ScanID     string
	Image      []byte
	Categories []string
	Refresh    RefreshFunc
}

type AppliedItem struct {
	Index int
	Item  core.SpendingItem
}

// Result is what a run produced. OCRText is kept even when a later step
// fails so the caller can show it for manual entry.
type Result struct {
	ScanID  string
	OCRText string
	Receipt *core.StructuredReceipt
	Applied []AppliedItem
	Skipped []core.ItemValidationError
}

// Changed reports whether the run mutated the ledger.
func (r *Result) Changed() bool { return r != nil && len(r.Applied) > 0 }

// CategoryIDs returns the distinct categories touched by applied items.
func (r *Result) CategoryIDs() []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, a := range r.Applied {
		if !seen[a.Item.CategoryID] {
			seen[a.Item.CategoryID] = true
			ids = append(ids, a.Item.CategoryID)
		}
	}
	return ids
}

// AppliedTotal sums the applied amounts.
func (r *Result) AppliedTotal() core.Money {
	var total core.Money
	for _, a := range r.Applied {
		total = total.Add(a.Item.Amount)
	}
	return total
}

// Run processes one receipt. Failures in OCR, the LLM call or JSON recovery
// return the partial result with an error and leave the ledger untouched.
// Per-item problems are recorded in Result.Skipped.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, core.ErrEmptyUser
	}
	res := &Result{ScanID: in.ScanID}
	fields := log.NewFields().WithScan(in.UserID, in.ScanID)

	text, err := p.extractText(ctx, in.Image)
	if err != nil {
		p.logger.ErrorContext(ctx, "OCR failed", fields.WithError(err).ToSlice()...)
		return res, err
	}
	res.OCRText = text
	p.logger.InfoContext(ctx, "OCR completed", append(fields.ToSlice(), "chars", len(text))...)

	receipt, err := p.structure(ctx, text, in.Categories)
	if err != nil {
		p.logger.ErrorContext(ctx, "Receipt structuring failed", log.NewFields().WithScan(in.UserID, in.ScanID).WithError(err).ToSlice()...)
		return res, err
	}
	res.Receipt = receipt
	p.logger.InfoContext(ctx, "LLM reply parsed", append(fields.ToSlice(), "items", len(receipt.Items))...)

	planned, err := p.plan(ctx, in, receiptLines(receipt), res)
	if err != nil {
		p.logger.ErrorContext(ctx, "Receipt aborted", log.NewFields().WithScan(in.UserID, in.ScanID).WithError(err).ToSlice()...)
		return res, err
	}

	for _, it := range planned {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		saved, err := p.ledger.AddSpendingItem(ctx, it.item)
		if err != nil {
			p.skip(ctx, in, res, it.index, core.SkipPersistence, err.Error())
			continue
		}
		res.Applied = append(res.Applied, AppliedItem{Index: it.index, Item: saved})
		p.events.LogItemApplied(ctx, in.UserID, in.ScanID, it.index, saved.ItemName, saved.CategoryName, saved.Amount.Cents)
	}

	if in.Refresh != nil {
		if err := in.Refresh(ctx); err != nil {
			p.logger.WarnContext(ctx, "Budget refresh failed", log.NewFields().WithScan(in.UserID, in.ScanID).WithError(err).ToSlice()...)
		}
	}

	p.logger.InfoContext(ctx, "Receipt processed", append(fields.ToSlice(),
		"applied", len(res.Applied),
		"skipped", len(res.Skipped),
		log.FieldAmountCents, res.AppliedTotal().Cents,
	)...)
	return res, nil
}

func (p *Pipeline) extractText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", &core.OcrError{Provider: "input", Message: "empty image"}
	}
	if p.downscale {
		if small, err := ocr.Downscale(image); err == nil {
			image = small
		} else {
			p.logger.DebugContext(ctx, "Downscale skipped", log.FieldError, err.Error())
		}
	}

	text, err := p.ocr.DetectText(ctx, image)
	if err != nil {
		var oe *core.OcrError
		if errors.As(err, &oe) {
			return "", err
		}
		return "", &core.OcrError{Provider: "gateway", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &core.OcrError{Provider: "gateway", Message: "no text detected"}
	}
	return text, nil
}

func (p *Pipeline) structure(ctx context.Context, text string, categories []string) (*core.StructuredReceipt, error) {
	reply, err := p.llm.Complete(ctx, llm.BuildPrompt(text, categories))
	if err != nil {
		return nil, fmt.Errorf("llm extraction: %w", err)
	}
	raw, err := llm.RecoverJSON(reply)
	if err != nil {
		return nil, err
	}
	receipt, err := core.DecodeStructuredReceipt(raw)
	if err != nil {
		return nil, &core.ResponseFormatError{Reason: "reply is not a receipt object", Reply: reply, Err: err}
	}
	if !receipt.HasItems {
		if !receipt.Category.Present || !receipt.Total.Present {
			return nil, &core.ResponseFormatError{Reason: "reply has no items", Reply: reply}
		}
	}
	return receipt, nil
}

// receiptLines returns the items to apply. A reply with a single top-level
// classification becomes one item named after the store.
func receiptLines(r *core.StructuredReceipt) []core.ReceiptItem {
	if r.HasItems {
		return r.Items
	}
	return []core.ReceiptItem{{
		Description: r.StoreName,
		Price:       r.Total,
		Category:    r.Category,
	}}
}

type plannedItem struct {
	index int
	item  core.SpendingItem
}

// plan validates every line and resolves its category before anything is
// written, so an abort leaves the ledger untouched.
func (p *Pipeline) plan(ctx context.Context, in Input, lines []core.ReceiptItem, res *Result) ([]plannedItem, error) {
	resolved := make(map[string]core.Category)
	planned := make([]plannedItem, 0, len(lines))

	for i, line := range lines {
		if !line.Category.Present || !line.Price.Present {
			p.skip(ctx, in, res, i, core.SkipMissingField, "category and price are required")
			continue
		}
		name := core.CleanCategoryName(line.Category.Text)
		if name == "" {
			p.skip(ctx, in, res, i, core.SkipMissingField, "category is blank")
			continue
		}
		cents, ok := core.ParseLenientPrice(line.Price.Text)
		if !ok {
			p.skip(ctx, in, res, i, core.SkipInvalidPrice, fmt.Sprintf("cannot parse price %q", line.Price.Text))
			continue
		}

		key := core.NormalizeCategoryName(name)
		cat, found := resolved[key]
		if !found {
			c, err := p.ledger.FindCategory(ctx, in.UserID, name)
			switch {
			case err == nil:
				cat = c
				resolved[key] = c
			case errors.Is(err, core.ErrNotFound):
				if p.policy == PolicyAbort {
					return nil, err
				}
				p.skip(ctx, in, res, i, core.SkipCategoryNotFound, err.Error())
				continue
			default:
				if p.policy == PolicyAbort {
					return nil, &core.PersistenceError{Op: "find category", Err: err}
				}
				p.skip(ctx, in, res, i, core.SkipPersistence, err.Error())
				continue
			}
		}

		planned = append(planned, plannedItem{index: i, item: core.SpendingItem{
			UserID:       in.UserID,
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			ItemName:     line.ItemName(),
			Amount:       core.Money{Cents: cents},
		}})
	}
	return planned, nil
}

func (p *Pipeline) skip(ctx context.Context, in Input, res *Result, index int, reason core.SkipReason, detail string) {
	res.Skipped = append(res.Skipped, core.ItemValidationError{Index: index, Reason: reason, Detail: detail})
	p.events.LogItemSkipped(ctx, in.UserID, in.ScanID, index, string(reason), detail)
}
