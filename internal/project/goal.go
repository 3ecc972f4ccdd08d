package project

import (
	"time"

	"github.com/Ryuko2/dinerito/internal/core"
)

// rollingDays is the lookback used to estimate the household's current
// monthly income and spend.
const rollingDays = 30

// GoalProjection estimates when a savings goal completes at the current
// net savings rate.
type GoalProjection struct {
	Goal               core.SavingsGoal `json:"goal"`
	Remaining          float64          `json:"remaining"`
	MonthlySavingsRate float64          `json:"monthlySavingsRate"`
	MonthsToComplete   float64          `json:"monthsToComplete"`
	Achievable         bool             `json:"achievable"`
	CompletionDate     string           `json:"completionDate,omitempty"`
}

// Goals projects every savings goal. The savings rate is shared: income
// minus expenses over the last thirty days, minus active recurring
// obligations converted to their monthly amounts.
func Goals(goals []core.SavingsGoal, incomes []core.Income, expenses []core.Expense, recurring []core.RecurringExpense, now time.Time) []GoalProjection {
	rate := MonthlySavingsRate(incomes, expenses, recurring, now)

	out := make([]GoalProjection, 0, len(goals))
	for _, g := range goals {
		p := GoalProjection{
			Goal:               g,
			Remaining:          g.Remaining(),
			MonthlySavingsRate: rate,
		}
		if rate > 0 {
			p.Achievable = true
			p.MonthsToComplete = p.Remaining / rate
			days := p.MonthsToComplete * rollingDays
			p.CompletionDate = now.Add(time.Duration(days * 24 * float64(time.Hour))).Format(core.DayFormat)
		}
		out = append(out, p)
	}
	return out
}

// MonthlySavingsRate derives the household's current net monthly
// savings. Zero or negative means goals are not currently achievable.
func MonthlySavingsRate(incomes []core.Income, expenses []core.Expense, recurring []core.RecurringExpense, now time.Time) float64 {
	w := rollingWindow(now)

	var in, out float64
	for _, i := range incomes {
		if w.Contains(i.Date) {
			in += i.Amount
		}
	}
	for _, e := range expenses {
		if w.Contains(e.Date) {
			out += e.Amount
		}
	}

	var obligations float64
	for _, r := range recurring {
		if r.Active {
			obligations += r.MonthlyAmount()
		}
	}
	return in - out - obligations
}

func rollingWindow(now time.Time) core.Window {
	return core.Window{From: now.AddDate(0, 0, -rollingDays), To: now}
}
