package project

import (
	"testing"
	"time"

	"github.com/Ryuko2/dinerito/internal/core"
)

var goalNow = time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)

func income(amount float64, person core.Person, date string) core.Income {
	return core.Income{Amount: amount, Person: person, Date: date}
}

func TestGoalNotAchievableAtZeroRate(t *testing.T) {
	goals := []core.SavingsGoal{{Name: "Viaje", TargetAmount: 20000, CurrentAmount: 15000}}
	incomes := []core.Income{income(20000, core.PersonBoyfriend, "2025-04-01")}
	expenses := []core.Expense{expense(20000, "Hogar", core.PersonBoyfriend, "2025-04-01")}

	got := Goals(goals, incomes, expenses, nil, goalNow)[0]
	if got.Achievable {
		t.Error("Achievable = true at zero rate")
	}
	if got.CompletionDate != "" {
		t.Errorf("CompletionDate = %q", got.CompletionDate)
	}
	if got.MonthlySavingsRate != 0 {
		t.Errorf("MonthlySavingsRate = %v", got.MonthlySavingsRate)
	}
}

func TestGoalOneMonthOut(t *testing.T) {
	goals := []core.SavingsGoal{{Name: "Viaje", TargetAmount: 20000, CurrentAmount: 15000}}
	incomes := []core.Income{income(20000, core.PersonBoyfriend, "2025-04-01")}
	expenses := []core.Expense{expense(15000, "Hogar", core.PersonBoyfriend, "2025-04-01")}

	got := Goals(goals, incomes, expenses, nil, goalNow)[0]
	if !got.Achievable {
		t.Fatal("Achievable = false")
	}
	if got.MonthlySavingsRate != 5000 {
		t.Errorf("MonthlySavingsRate = %v", got.MonthlySavingsRate)
	}
	if got.MonthsToComplete != 1 {
		t.Errorf("MonthsToComplete = %v", got.MonthsToComplete)
	}
	if got.CompletionDate != "2025-05-15" {
		t.Errorf("CompletionDate = %q", got.CompletionDate)
	}
}

func TestGoalRateSubtractsRecurringObligations(t *testing.T) {
	incomes := []core.Income{income(10000, core.PersonGirlfriend, "2025-04-10")}
	recurring := []core.RecurringExpense{
		{Name: "Gym", Amount: 300, Frequency: core.FrequencyWeekly, Active: true},
		{Name: "Streaming", Amount: 200, Frequency: core.FrequencyMonthly, Active: true},
		{Name: "Paused", Amount: 9999, Frequency: core.FrequencyMonthly, Active: false},
	}

	got := MonthlySavingsRate(incomes, nil, recurring, goalNow)
	want := 10000 - 300*52.0/12 - 200
	if got != want {
		t.Errorf("MonthlySavingsRate = %v, want %v", got, want)
	}
}

func TestGoalRateIgnoresRecordsOutsideWindow(t *testing.T) {
	incomes := []core.Income{
		income(5000, core.PersonBoyfriend, "2025-04-10"),
		income(9000, core.PersonBoyfriend, "2025-01-01"), // stale
	}
	expenses := []core.Expense{
		expense(1000, "Comida", core.PersonBoyfriend, "2024-12-25"), // stale
	}

	if got := MonthlySavingsRate(incomes, expenses, nil, goalNow); got != 5000 {
		t.Errorf("MonthlySavingsRate = %v, want 5000", got)
	}
}

func TestGoalAlreadyFunded(t *testing.T) {
	goals := []core.SavingsGoal{{Name: "Lista", TargetAmount: 1000, CurrentAmount: 1500}}
	incomes := []core.Income{income(2000, core.PersonBoyfriend, "2025-04-01")}

	got := Goals(goals, incomes, nil, nil, goalNow)[0]
	if got.Remaining != 0 || got.MonthsToComplete != 0 {
		t.Errorf("got %+v", got)
	}
	if got.CompletionDate != "2025-04-15" {
		t.Errorf("CompletionDate = %q", got.CompletionDate)
	}
}

func TestGoalsEmptyInputs(t *testing.T) {
	if got := Goals(nil, nil, nil, nil, goalNow); len(got) != 0 {
		t.Errorf("got %d projections", len(got))
	}
	if got := MonthlySavingsRate(nil, nil, nil, goalNow); got != 0 {
		t.Errorf("rate on empty inputs = %v", got)
	}
}
