package core

import (
	"errors"
	"strings"
)

// SchemaVersion is written alongside every new or migrated document so
// future normalization logic can tell which shape a record was saved under.
const SchemaVersion = "1.0"

// Collection names as they exist in the remote document store.
// Changing these breaks existing user data; write a migration first.
const (
	CollectionExpenses  = "expenses"
	CollectionIncomes   = "incomes"
	CollectionBudgets   = "budgets"
	CollectionDebts     = "debts"
	CollectionRecurring = "recurring"
	CollectionGoals     = "goals"
)

type (
	// Person identifies one of the two fixed household members.
	Person string

	// PersonFilter is a Person or "all"; used by budgets, debts and
	// recurring expenses to scope which member they apply to.
	PersonFilter string

	// PaymentType marks an expense as paid by credit or debit card.
	// The empty value means "not specified".
	PaymentType string

	// Period is a budget recurrence window.
	Period string

	// Frequency is how often a recurring expense repeats.
	Frequency string
)

const (
	PersonBoyfriend  Person = "boyfriend"
	PersonGirlfriend Person = "girlfriend"

	FilterAll PersonFilter = "all"

	PaymentCredit PaymentType = "credito"
	PaymentDebit  PaymentType = "debito"
	PaymentNone   PaymentType = ""

	PeriodWeekly   Period = "weekly"
	PeriodBiweekly Period = "biweekly"
	PeriodMonthly  Period = "monthly"

	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// PersonNames maps each household member to their display name.
var PersonNames = map[Person]string{
	PersonBoyfriend:  "Kevin",
	PersonGirlfriend: "Angeles",
}

// Categories are the ten fixed expense categories. CategoryOther is the
// normalization fallback for anything unrecognized.
var Categories = []string{
	"Comida", "Transporte", "Entretenimiento", "Ropa", "Salud",
	"Hogar", "Educacion", "Regalos", "Suscripciones", "Otro",
}

const CategoryOther = "Otro"

// Cards is the UI-suggested payment method list. The field itself is an
// open string; only the default matters for normalization.
var Cards = []string{
	"efectivo", "santander", "bbva", "amex", "banamex", "banorte", "transferencia",
}

const CardDefault = "efectivo"

// GoalIcons are the recognized savings goal icon tags.
var GoalIcons = []string{
	"Car", "Home", "Plane", "Laptop", "Smartphone",
	"GraduationCap", "Gem", "Guitar", "Palmtree", "Target",
}

const GoalIconDefault = "Target"

func (p Person) IsValid() bool {
	return p == PersonBoyfriend || p == PersonGirlfriend
}

func (f PersonFilter) IsValid() bool {
	return f == FilterAll || Person(f).IsValid()
}

// Matches reports whether the filter includes the given person.
func (f PersonFilter) Matches(p Person) bool {
	return f == FilterAll || Person(f) == p
}

func (t PaymentType) IsValid() bool {
	return t == PaymentCredit || t == PaymentDebit
}

func (p Period) IsValid() bool {
	return p == PeriodWeekly || p == PeriodBiweekly || p == PeriodMonthly
}

func (f Frequency) IsValid() bool {
	return f == FrequencyWeekly || f == FrequencyBiweekly || f == FrequencyMonthly
}

// IsCategory reports whether s is one of the fixed expense categories.
func IsCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}

// IsGoalIcon reports whether s is a recognized goal icon tag.
func IsGoalIcon(s string) bool {
	for _, i := range GoalIcons {
		if i == s {
			return true
		}
	}
	return false
}

// Expense is a single logged expense. Date is the calendar day the money
// was spent (YYYY-MM-DD), independent of CreatedAt.
type Expense struct {
	ID             string      `json:"id"`
	Amount         float64     `json:"amount"`
	Description    string      `json:"description"`
	Category       string      `json:"category"`
	Card           string      `json:"card"`
	Brand          string      `json:"brand"`
	PaidBy         Person      `json:"paidBy"`
	Date           string      `json:"date"`
	CreatedAt      string      `json:"createdAt"`
	PaymentType    PaymentType `json:"paymentType,omitempty"`
	ThirdPartyName string      `json:"thirdPartyName,omitempty"`
}

// Income is money received by one of the household members.
type Income struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Person      Person  `json:"person"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"createdAt"`
}

// Budget limits spending for a category/person combination over a
// recurring period. The current period window is computed from Period
// and today's date, never stored.
type Budget struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    string       `json:"category"` // "all" or one fixed category
	Person      PersonFilter `json:"person"`
	LimitAmount float64      `json:"limitAmount"`
	Period      Period       `json:"period"`
	CreatedAt   string       `json:"createdAt"`
}

// Debt tracks money owed. AmountPaid grows through explicit
// contributions; the UI keeps it at or below TotalAmount but the server
// does not enforce that, so Remaining never goes negative.
type Debt struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	TotalAmount float64      `json:"totalAmount"`
	AmountPaid  float64      `json:"amountPaid"`
	Person      PersonFilter `json:"person"`
	DueDate     string       `json:"dueDate,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	CreatedAt   string       `json:"createdAt"`
}

// Remaining returns the unpaid balance, never negative.
func (d Debt) Remaining() float64 {
	if d.AmountPaid >= d.TotalAmount {
		return 0
	}
	return d.TotalAmount - d.AmountPaid
}

// RecurringExpense is a repeating charge. Inactive entries are paused,
// not deleted, and are excluded from obligation math.
type RecurringExpense struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Amount    float64      `json:"amount"`
	Category  string       `json:"category"`
	Person    PersonFilter `json:"person"`
	Frequency Frequency    `json:"frequency"`
	StartDate string       `json:"startDate"`
	Active    bool         `json:"active"`
	CreatedAt string       `json:"createdAt"`
}

// MonthlyAmount converts the recurring amount to a monthly obligation.
func (r RecurringExpense) MonthlyAmount() float64 {
	switch r.Frequency {
	case FrequencyWeekly:
		return r.Amount * 52 / 12
	case FrequencyBiweekly:
		return r.Amount * 26 / 12
	default:
		return r.Amount
	}
}

// SavingsGoal accumulates contributions toward a target.
type SavingsGoal struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	TargetAmount  float64 `json:"targetAmount"`
	CurrentAmount float64 `json:"currentAmount"`
	Icon          string  `json:"icon"`
	CreatedAt     string  `json:"createdAt"`
}

// Remaining returns how much is still needed, never negative.
func (g SavingsGoal) Remaining() float64 {
	if g.CurrentAmount >= g.TargetAmount {
		return 0
	}
	return g.TargetAmount - g.CurrentAmount
}

// Kind is the closed set of entity kinds handled by the normalizer.
type Kind int

const (
	KindUnknown Kind = iota
	KindExpense
	KindIncome
	KindBudget
	KindDebt
	KindRecurring
	KindGoal
)

var ErrUnknownCollection = errors.New("unknown collection")

// KindForCollection maps a collection name to its entity kind.
// Unrecognized names map to KindUnknown; the normalizer passes those
// documents through untouched.
func KindForCollection(name string) Kind {
	switch strings.TrimSpace(name) {
	case CollectionExpenses:
		return KindExpense
	case CollectionIncomes:
		return KindIncome
	case CollectionBudgets:
		return KindBudget
	case CollectionDebts:
		return KindDebt
	case CollectionRecurring:
		return KindRecurring
	case CollectionGoals:
		return KindGoal
	default:
		return KindUnknown
	}
}

// Collections lists every synchronized collection in a fixed order.
func Collections() []string {
	return []string{
		CollectionExpenses, CollectionIncomes, CollectionBudgets,
		CollectionDebts, CollectionRecurring, CollectionGoals,
	}
}
