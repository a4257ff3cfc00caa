package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event types.
const (
	EventReceiptApplied  = "receipt.applied"
	EventItemAdded       = "item.added"
	EventTotalSet        = "category.total_set"
	EventTotalAdjusted   = "category.total_adjusted"
	EventTotalsReset     = "category.totals_reset"
	EventBudgetChanged   = "budget.changed"
	EventCategoryCreated = "category.created"
)

// LedgerEvent tells consumers that a user's ledger changed. It carries only
// identifiers; consumers read current totals from the store.
type LedgerEvent struct {
	Type        string    `json:"type"`
	UserID      string    `json:"userId"`
	ScanID      string    `json:"scanId,omitempty"`
	CategoryIDs []int64   `json:"categoryIds,omitempty"`
	AmountCents int64     `json:"amountCents"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewLedgerEvent(eventType, userID string, amountCents int64, categoryIDs ...int64) *LedgerEvent {
	return &LedgerEvent{
		Type:        eventType,
		UserID:      userID,
		CategoryIDs: categoryIDs,
		AmountCents: amountCents,
		Timestamp:   time.Now(),
	}
}

// WithScan tags the event with the receipt scan that caused it.
func (m *LedgerEvent) WithScan(scanID string) *LedgerEvent {
	m.ScanID = scanID
	return m
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
