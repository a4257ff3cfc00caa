package core

// AlertLevel is a discretised view of budget consumption.
type AlertLevel string

const (
	AlertSafe     AlertLevel = "safe"
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Thresholds in percent. A value exactly on a threshold takes the higher tier.
const (
	InfoThreshold     = 60
	WarningThreshold  = 80
	CriticalThreshold = 90
)

// BudgetProgress is derived from a budget and its category's running total.
type BudgetProgress struct {
	BudgetID     int64
	CategoryID   int64
	CategoryName string
	Period       BudgetPeriod
	Budget       Money
	Spent        Money
	Remaining    Money
	Percentage   float64
	OverBudget   bool
	AlertLevel   AlertLevel
}

// IsAlert reports whether the level warrants a user-facing alert.
func (l AlertLevel) IsAlert() bool {
	return l == AlertWarning || l == AlertCritical
}

// CalculateProgress computes spent/remaining/percentage/alert for one budget.
// A zero budget yields zero remaining, zero percent and AlertSafe.
func CalculateProgress(spent, budget Money) BudgetProgress {
	p := BudgetProgress{
		Budget: budget,
		Spent:  spent,
	}
	if budget.Cents == 0 {
		p.AlertLevel = AlertSafe
		return p
	}

	p.Percentage = float64(spent.Cents) / float64(budget.Cents) * 100
	if remaining := budget.Cents - spent.Cents; remaining > 0 {
		p.Remaining = Money{Cents: remaining}
	}
	p.OverBudget = spent.Cents > budget.Cents
	p.AlertLevel = alertLevel(spent.Cents, budget.Cents)
	return p
}

// alertLevel compares spent/budget against the thresholds in integer space so
// that exact boundaries are not lost to float rounding.
func alertLevel(spent, budget int64) AlertLevel {
	scaled := spent * 100
	switch {
	case scaled >= budget*CriticalThreshold:
		return AlertCritical
	case scaled >= budget*WarningThreshold:
		return AlertWarning
	case scaled >= budget*InfoThreshold:
		return AlertInfo
	default:
		return AlertSafe
	}
}

// ProgressFor builds the progress row for budget b given its category total.
func ProgressFor(b Budget, total Money) BudgetProgress {
	p := CalculateProgress(total, b.Amount)
	p.BudgetID = b.ID
	p.CategoryID = b.CategoryID
	p.CategoryName = b.CategoryName
	p.Period = b.Period
	return p
}

// FilterAlerts keeps only warning and critical rows.
func FilterAlerts(rows []BudgetProgress) []BudgetProgress {
	out := make([]BudgetProgress, 0, len(rows))
	for _, r := range rows {
		if r.AlertLevel.IsAlert() {
			out = append(out, r)
		}
	}
	return out
}
