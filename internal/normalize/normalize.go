// Package normalize converts arbitrary raw documents into the current
// typed schema. Records may have been written by older app versions
// under legacy field names, with missing fields, or with string-typed
// numbers; every function here is pure, total and idempotent, and never
// discards data: a malformed field becomes a safe default that stays
// visible for manual correction instead of silently disappearing.
package normalize

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/Ryuko2/dinerito/internal/core"
	"github.com/Ryuko2/dinerito/internal/remote"
)

// nowFn is stubbed in tests; "today" defaults come from it.
var nowFn = time.Now

// Expense normalizes a raw expense document. Legacy field names
// (monto, fecha, descripcion) are honored when the current name is
// absent.
func Expense(raw remote.Document, id string) core.Expense {
	paidBy := core.PersonBoyfriend
	if raw["paidBy"] == string(core.PersonGirlfriend) {
		paidBy = core.PersonGirlfriend
	}

	category := core.CategoryOther
	if s, ok := raw["category"].(string); ok && core.IsCategory(s) {
		category = s
	}

	card := core.CardDefault
	if s, ok := raw["card"].(string); ok {
		card = s
	}

	var paymentType core.PaymentType
	if t := core.PaymentType(asString(raw["paymentType"])); t.IsValid() {
		paymentType = t
	}

	var thirdParty string
	if s, ok := raw["thirdPartyName"].(string); ok {
		thirdParty = s
	}

	return core.Expense{
		ID:             id,
		Amount:         toAmount(alias(raw, "amount", "monto")),
		Description:    toText(alias(raw, "description", "descripcion")),
		Category:       category,
		Card:           card,
		Brand:          toText(raw["brand"]),
		PaidBy:         paidBy,
		Date:           toDay(alias(raw, "date", "fecha")),
		CreatedAt:      toTimestamp(raw["createdAt"]),
		PaymentType:    paymentType,
		ThirdPartyName: thirdParty,
	}
}

// Income normalizes a raw income document.
func Income(raw remote.Document, id string) core.Income {
	person := core.PersonBoyfriend
	if raw["person"] == string(core.PersonGirlfriend) {
		person = core.PersonGirlfriend
	}
	return core.Income{
		ID:          id,
		Amount:      toAmount(alias(raw, "amount", "monto")),
		Description: toText(alias(raw, "description", "descripcion")),
		Person:      person,
		Date:        toDay(alias(raw, "date", "fecha")),
		CreatedAt:   toTimestamp(raw["createdAt"]),
	}
}

// Budget normalizes a raw budget document. The category filter is an
// open "all"-or-category string, so any string is preserved; only a
// missing or non-string value falls back to "all".
func Budget(raw remote.Document, id string) core.Budget {
	period := core.PeriodMonthly
	if p := core.Period(asString(raw["period"])); p == core.PeriodWeekly || p == core.PeriodBiweekly {
		period = p
	}

	category := "all"
	if s, ok := raw["category"].(string); ok {
		category = s
	}

	return core.Budget{
		ID:          id,
		Name:        toText(raw["name"]),
		Category:    category,
		Person:      toPersonFilter(raw["person"]),
		LimitAmount: toAmount(raw["limitAmount"]),
		Period:      period,
		CreatedAt:   toTimestamp(raw["createdAt"]),
	}
}

// Debt normalizes a raw debt document. DueDate stays absent unless a
// usable value is present; defaulting it to today would invent a
// deadline the user never set.
func Debt(raw remote.Document, id string) core.Debt {
	var dueDate string
	switch v := raw["dueDate"].(type) {
	case string:
		dueDate = v
	case time.Time:
		dueDate = v.Format(core.DayFormat)
	case map[string]any:
		if t, ok := timestampObject(v); ok {
			dueDate = t.Format(core.DayFormat)
		}
	}
	return core.Debt{
		ID:          id,
		Name:        toText(raw["name"]),
		TotalAmount: toAmount(raw["totalAmount"]),
		AmountPaid:  toAmount(raw["amountPaid"]),
		Person:      toPersonFilter(raw["person"]),
		DueDate:     dueDate,
		Notes:       toText(raw["notes"]),
		CreatedAt:   toTimestamp(raw["createdAt"]),
	}
}

// Recurring normalizes a raw recurring-expense document. A missing or
// mistyped active flag defaults to true so the charge keeps counting
// toward obligations; pausing is always an explicit user action.
func Recurring(raw remote.Document, id string) core.RecurringExpense {
	frequency := core.FrequencyMonthly
	if f := core.Frequency(asString(raw["frequency"])); f == core.FrequencyWeekly || f == core.FrequencyBiweekly {
		frequency = f
	}

	category := core.CategoryOther
	if s, ok := raw["category"].(string); ok && core.IsCategory(s) {
		category = s
	}

	active := true
	if b, ok := raw["active"].(bool); ok {
		active = b
	}

	return core.RecurringExpense{
		ID:        id,
		Name:      toText(raw["name"]),
		Amount:    toAmount(raw["amount"]),
		Category:  category,
		Person:    toPersonFilter(raw["person"]),
		Frequency: frequency,
		StartDate: toDay(raw["startDate"]),
		Active:    active,
		CreatedAt: toTimestamp(raw["createdAt"]),
	}
}

// Goal normalizes a raw savings goal document. Legacy field names
// (target, current) are honored when the current names are absent.
func Goal(raw remote.Document, id string) core.SavingsGoal {
	icon := core.GoalIconDefault
	if s, ok := raw["icon"].(string); ok && core.IsGoalIcon(s) {
		icon = s
	}
	return core.SavingsGoal{
		ID:            id,
		Name:          toText(raw["name"]),
		TargetAmount:  toAmount(alias(raw, "targetAmount", "target")),
		CurrentAmount: toAmount(alias(raw, "currentAmount", "current")),
		Icon:          icon,
		CreatedAt:     toTimestamp(raw["createdAt"]),
	}
}

// Document normalizes a raw record for the named collection. Documents
// from an unrecognized collection pass through untouched, merged with
// their identifier.
func Document(collection string, raw remote.Document, id string) remote.Document {
	switch core.KindForCollection(collection) {
	case core.KindExpense:
		return toDoc(Expense(raw, id))
	case core.KindIncome:
		return toDoc(Income(raw, id))
	case core.KindBudget:
		return toDoc(Budget(raw, id))
	case core.KindDebt:
		return toDoc(Debt(raw, id))
	case core.KindRecurring:
		return toDoc(Recurring(raw, id))
	case core.KindGoal:
		return toDoc(Goal(raw, id))
	default:
		out := make(remote.Document, len(raw)+1)
		for k, v := range raw {
			out[k] = v
		}
		out["id"] = id
		return out
	}
}

func toDoc(v any) remote.Document {
	// The typed records marshal cleanly; a failure here would be a
	// programming error, and total means no panic either way.
	b, err := json.Marshal(v)
	if err != nil {
		return remote.Document{}
	}
	var m remote.Document
	if err := json.Unmarshal(b, &m); err != nil {
		return remote.Document{}
	}
	return m
}

// alias returns the value under the current field name, falling back to
// legacy names only when the current one is absent.
func alias(raw remote.Document, names ...string) any {
	for _, n := range names {
		if v, ok := raw[n]; ok && v != nil {
			return v
		}
	}
	return nil
}

// toAmount coerces a numeric field: native numbers pass through,
// numeric strings are parsed, anything else becomes 0. A mis-typed
// amount shows up as 0 rather than vanishing.
func toAmount(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// toText renders a free-text field: strings pass through (empty
// included), nil becomes "", and any other present value keeps its
// printed form rather than being dropped.
func toText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func toPersonFilter(v any) core.PersonFilter {
	switch v {
	case string(core.PersonBoyfriend):
		return core.PersonFilter(core.PersonBoyfriend)
	case string(core.PersonGirlfriend):
		return core.PersonFilter(core.PersonGirlfriend)
	default:
		return core.FilterAll
	}
}

// toDay coerces a calendar-day field to YYYY-MM-DD. Strings pass
// through as-is; store-native timestamp objects are converted; anything
// else becomes today.
func toDay(v any) string {
	switch d := v.(type) {
	case string:
		if d != "" {
			return d
		}
	case time.Time:
		return d.Format(core.DayFormat)
	case map[string]any:
		if t, ok := timestampObject(d); ok {
			return t.Format(core.DayFormat)
		}
	}
	return nowFn().Format(core.DayFormat)
}

// toTimestamp coerces a creation/update timestamp to RFC 3339.
func toTimestamp(v any) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case map[string]any:
		if ts, ok := timestampObject(t); ok {
			return ts.UTC().Format(time.RFC3339)
		}
	}
	return nowFn().UTC().Format(time.RFC3339)
}

// timestampObject recognizes the store-native {seconds, nanoseconds}
// timestamp shape.
func timestampObject(m map[string]any) (time.Time, bool) {
	secs, ok := m["seconds"]
	if !ok {
		return time.Time{}, false
	}
	s := toAmount(secs)
	if s == 0 {
		return time.Time{}, false
	}
	ns := toAmount(m["nanoseconds"])
	return time.Unix(int64(s), int64(ns)), true
}
