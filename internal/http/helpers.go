package http

import (
	"strings"
	"time"

	"budgie/internal/core"
	"budgie/internal/services"
)

// Response views. Amounts are sent both as integer cents and as a fixed
// two-decimal string so clients never round floats.

type moneyView struct {
	Cents   int64  `json:"cents"`
	Display string `json:"display"`
}

func money(m core.Money) moneyView {
	return moneyView{Cents: m.Cents, Display: m.String()}
}

type categoryView struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	TotalSpent moneyView `json:"totalSpent"`
	CreatedAt  time.Time `json:"createdAt"`
}

func categoryJSON(c core.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, TotalSpent: money(c.TotalSpent), CreatedAt: c.CreatedAt}
}

type itemView struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	Name         string    `json:"name"`
	Amount       moneyView `json:"amount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func itemJSON(s core.SpendingItem) itemView {
	return itemView{
		ID:           s.ID,
		CategoryID:   s.CategoryID,
		CategoryName: s.CategoryName,
		Name:         s.ItemName,
		Amount:       money(s.Amount),
		CreatedAt:    s.CreatedAt,
	}
}

func itemsJSON(items []core.SpendingItem) []itemView {
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		out = append(out, itemJSON(it))
	}
	return out
}

type budgetView struct {
	ID           int64             `json:"id"`
	CategoryID   int64             `json:"categoryId"`
	CategoryName string            `json:"categoryName"`
	Amount       moneyView         `json:"amount"`
	Period       core.BudgetPeriod `json:"period"`
	Active       bool              `json:"active"`
	StartDate    string            `json:"startDate"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

func budgetJSON(b core.Budget) budgetView {
	return budgetView{
		ID:           b.ID,
		CategoryID:   b.CategoryID,
		CategoryName: b.CategoryName,
		Amount:       money(b.Amount),
		Period:       b.Period,
		Active:       b.Active,
		StartDate:    b.StartDate.Format(time.DateOnly),
		UpdatedAt:    b.UpdatedAt,
	}
}

type progressView struct {
	BudgetID     int64             `json:"budgetId"`
	CategoryID   int64             `json:"categoryId"`
	CategoryName string            `json:"categoryName"`
	Period       core.BudgetPeriod `json:"period"`
	Budget       moneyView         `json:"budget"`
	Spent        moneyView         `json:"spent"`
	Remaining    moneyView         `json:"remaining"`
	Percentage   float64           `json:"percentage"`
	OverBudget   bool              `json:"overBudget"`
	AlertLevel   core.AlertLevel   `json:"alertLevel"`
}

func progressJSON(rows []core.BudgetProgress) []progressView {
	out := make([]progressView, 0, len(rows))
	for _, p := range rows {
		out = append(out, progressView{
			BudgetID:     p.BudgetID,
			CategoryID:   p.CategoryID,
			CategoryName: p.CategoryName,
			Period:       p.Period,
			Budget:       money(p.Budget),
			Spent:        money(p.Spent),
			Remaining:    money(p.Remaining),
			Percentage:   p.Percentage,
			OverBudget:   p.OverBudget,
			AlertLevel:   p.AlertLevel,
		})
	}
	return out
}

type appliedView struct {
	Index int      `json:"index"`
	Item  itemView `json:"item"`
}

type skippedView struct {
	Index  int             `json:"index"`
	Reason core.SkipReason `json:"reason"`
	Detail string          `json:"detail,omitempty"`
}

type scanView struct {
	ScanID    string                  `json:"scanId"`
	OCRText   string                  `json:"ocrText"`
	Receipt   *core.StructuredReceipt `json:"receipt,omitempty"`
	Applied   []appliedView           `json:"applied"`
	Skipped   []skippedView           `json:"skipped"`
	Total     moneyView               `json:"appliedTotal"`
	Budgets   []progressView          `json:"budgets"`
	Duplicate bool                    `json:"duplicate"`
	Error     string                  `json:"error,omitempty"`
}

func scanJSON(res *services.ScanResult) scanView {
	out := scanView{
		Applied: []appliedView{},
		Skipped: []skippedView{},
		Budgets: progressJSON(res.Budgets),
	}
	out.Duplicate = res.Duplicate
	if res.Result == nil {
		return out
	}
	out.ScanID = res.ScanID
	out.OCRText = res.OCRText
	out.Receipt = res.Receipt
	out.Total = money(res.AppliedTotal())
	for _, a := range res.Applied {
		out.Applied = append(out.Applied, appliedView{Index: a.Index, Item: itemJSON(a.Item)})
	}
	for _, s := range res.Skipped {
		out.Skipped = append(out.Skipped, skippedView{Index: s.Index, Reason: s.Reason, Detail: s.Detail})
	}
	return out
}

// sanitizeInput trims and drops control characters from a user-supplied
// name and limits it to 200 characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if runes := []rune(s); len(runes) > 200 {
		s = string(runes[:200])
	}
	return s
}
