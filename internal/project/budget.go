// Package project computes forecasts over the synchronized views. All
// functions are pure: they take the current records plus a reference
// time and never touch the network, the cache, or each other's output.
package project

import (
	"time"

	"github.com/Ryuko2/dinerito/internal/core"
)

// BudgetProjection extrapolates one budget's spend linearly to the end
// of its current period window.
type BudgetProjection struct {
	Budget           core.Budget `json:"budget"`
	SpentToDate      float64     `json:"spentToDate"`
	ProjectedTotal   float64     `json:"projectedTotal"`
	ProjectedPercent float64     `json:"projectedPercent"`
	WillExceed       bool        `json:"willExceed"`
	TrendAlert       bool        `json:"trendAlert"`
}

// Budgets projects every budget against the expenses that fall in its
// current period window. Order follows the input budgets.
func Budgets(budgets []core.Budget, expenses []core.Expense, now time.Time) []BudgetProjection {
	out := make([]BudgetProjection, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, projectBudget(b, expenses, now))
	}
	return out
}

func projectBudget(b core.Budget, expenses []core.Expense, now time.Time) BudgetProjection {
	w := core.PeriodWindow(b.Period, now)

	var spent float64
	for _, e := range expenses {
		if !matchesBudget(b, e) || !w.Contains(e.Date) {
			continue
		}
		spent += e.Amount
	}

	days := w.Days()
	elapsed := w.ElapsedDays(now)
	if elapsed > days {
		elapsed = days
	}

	projected := spent * days / elapsed

	p := BudgetProjection{
		Budget:         b,
		SpentToDate:    spent,
		ProjectedTotal: projected,
	}
	if b.LimitAmount > 0 {
		p.ProjectedPercent = projected / b.LimitAmount * 100
		p.WillExceed = projected > b.LimitAmount

		// Warn when the current pace would cross the limit even though
		// the plain spent-so-far percentage has not crossed it yet.
		pct := spent / b.LimitAmount * 100
		p.TrendAlert = pct/elapsed*days > 100 && pct < 100
	}
	return p
}

func matchesBudget(b core.Budget, e core.Expense) bool {
	if b.Category != "all" && b.Category != e.Category {
		return false
	}
	return b.Person.Matches(e.PaidBy)
}
