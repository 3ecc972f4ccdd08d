package project

import (
	"github.com/Ryuko2/dinerito/internal/core"
)

// Status is the ordinal classification of a spending ratio.
type Status string

const (
	StatusOK     Status = "ok"
	StatusWarm   Status = "warm"
	StatusHot    Status = "hot"
	StatusDanger Status = "danger"
)

// Ratio is total spend over total income across the full record
// history. Ratio is 0 when there is no income, never a division by
// zero.
type Ratio struct {
	TotalIncome  float64 `json:"totalIncome"`
	TotalExpense float64 `json:"totalExpense"`
	Ratio        float64 `json:"ratio"`
	Status       Status  `json:"status"`
}

// SpendingRatio computes the household-wide ratio over every record.
func SpendingRatio(expenses []core.Expense, incomes []core.Income) Ratio {
	var in, out float64
	for _, i := range incomes {
		in += i.Amount
	}
	for _, e := range expenses {
		out += e.Amount
	}
	return makeRatio(in, out)
}

// SpendingRatioByPerson computes the same classification separately for
// each household member, for comparative display.
func SpendingRatioByPerson(expenses []core.Expense, incomes []core.Income) map[core.Person]Ratio {
	type totals struct{ in, out float64 }
	acc := map[core.Person]*totals{
		core.PersonBoyfriend:  {},
		core.PersonGirlfriend: {},
	}
	for _, i := range incomes {
		if t, ok := acc[i.Person]; ok {
			t.in += i.Amount
		}
	}
	for _, e := range expenses {
		if t, ok := acc[e.PaidBy]; ok {
			t.out += e.Amount
		}
	}

	out := make(map[core.Person]Ratio, len(acc))
	for p, t := range acc {
		out[p] = makeRatio(t.in, t.out)
	}
	return out
}

func makeRatio(income, expense float64) Ratio {
	r := Ratio{TotalIncome: income, TotalExpense: expense}
	if income > 0 {
		r.Ratio = expense / income
	}
	r.Status = Classify(r.Ratio)
	return r
}

// Classify maps a ratio onto its status band.
func Classify(ratio float64) Status {
	switch {
	case ratio <= 0.5:
		return StatusOK
	case ratio <= 0.8:
		return StatusWarm
	case ratio <= 1.0:
		return StatusHot
	default:
		return StatusDanger
	}
}
