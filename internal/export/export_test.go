package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Ryuko2/dinerito/internal/core"
	"github.com/Ryuko2/dinerito/internal/normalize"
	"github.com/Ryuko2/dinerito/internal/remote/memory"
	"github.com/Ryuko2/dinerito/internal/sync"
)

var exportNow = time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)

func TestSnapshotWriteParseRoundTrip(t *testing.T) {
	bundle := Snapshot(
		[]core.Expense{{ID: "e1", Amount: 120, Description: "luz", Category: "Hogar", PaidBy: core.PersonGirlfriend, Date: "2025-04-01"}},
		[]core.SavingsGoal{{ID: "g1", Name: "Viaje", TargetAmount: 3000, CurrentAmount: 500, Icon: "Plane"}},
		[]core.Income{{ID: "i1", Amount: 9000, Description: "sueldo", Person: core.PersonBoyfriend, Date: "2025-04-01"}},
		[]core.Budget{{ID: "b1", Name: "Comida", Category: "Comida", Person: core.FilterAll, LimitAmount: 4000, Period: core.PeriodMonthly}},
		exportNow,
	)
	if bundle.DataVersion != core.SchemaVersion {
		t.Errorf("DataVersion = %q", bundle.DataVersion)
	}
	if bundle.ExportedAt != "2025-04-15T10:00:00Z" {
		t.Errorf("ExportedAt = %q", bundle.ExportedAt)
	}

	var buf bytes.Buffer
	if err := bundle.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	parsed, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Expenses) != 1 || parsed.Expenses[0].Description != "luz" {
		t.Errorf("expenses = %+v", parsed.Expenses)
	}
	if len(parsed.Goals) != 1 || parsed.Goals[0].TargetAmount != 3000 {
		t.Errorf("goals = %+v", parsed.Goals)
	}
	if len(parsed.Incomes) != 1 || len(parsed.Budgets) != 1 {
		t.Errorf("incomes = %d, budgets = %d", len(parsed.Incomes), len(parsed.Budgets))
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"wrong version", `{"dataVersion":"2.0","expenses":[]}`, ErrVersion},
		{"missing version", `{"expenses":[]}`, ErrVersion},
		{"not json", `not a bundle`, ErrShape},
		{"array where object expected", `[1,2,3]`, ErrShape},
		{"expenses not an array", `{"dataVersion":"1.0","expenses":{"a":1}}`, ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestImportIsAdditiveWithFreshIDs(t *testing.T) {
	store := memory.New()
	defer store.Close()

	targets := map[string]sync.Syncer{
		core.CollectionExpenses: sync.New(core.CollectionExpenses,
			store.Collection(core.CollectionExpenses), nil, normalize.Expense, sync.Config{}, nil),
		core.CollectionGoals: sync.New(core.CollectionGoals,
			store.Collection(core.CollectionGoals), nil, normalize.Goal, sync.Config{}, nil),
		core.CollectionIncomes: sync.New(core.CollectionIncomes,
			store.Collection(core.CollectionIncomes), nil, normalize.Income, sync.Config{}, nil),
		core.CollectionBudgets: sync.New(core.CollectionBudgets,
			store.Collection(core.CollectionBudgets), nil, normalize.Budget, sync.Config{}, nil),
	}

	bundle := Snapshot(
		[]core.Expense{{ID: "old-id", Amount: 50, Description: "pan", Category: "Comida", PaidBy: core.PersonBoyfriend, Date: "2025-04-01", CreatedAt: "2025-04-01T00:00:00Z"}},
		[]core.SavingsGoal{{ID: "old-goal", Name: "Viaje", TargetAmount: 3000}},
		nil, nil, exportNow,
	)

	counts, err := Import(context.Background(), bundle, targets, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if counts[core.CollectionExpenses] != 1 || counts[core.CollectionGoals] != 1 {
		t.Errorf("counts = %v", counts)
	}

	docs := store.Docs(core.CollectionExpenses)
	if len(docs) != 1 {
		t.Fatalf("expenses = %d", len(docs))
	}
	if docs[0]["id"] == "old-id" {
		t.Error("import reused the exported identifier")
	}
	if docs[0]["description"] != "pan" {
		t.Errorf("description = %v", docs[0]["description"])
	}
	// The normal add path stamps the version tag.
	if docs[0]["schemaVersion"] != core.SchemaVersion {
		t.Errorf("schemaVersion = %v", docs[0]["schemaVersion"])
	}
}

func TestExportImportRoundTripSetEquality(t *testing.T) {
	store := memory.New()
	defer store.Close()
	targets := map[string]sync.Syncer{
		core.CollectionExpenses: sync.New(core.CollectionExpenses,
			store.Collection(core.CollectionExpenses), nil, normalize.Expense, sync.Config{}, nil),
	}

	original := []core.Expense{
		{Amount: 10, Description: "a", Category: "Comida", Card: "efectivo", PaidBy: core.PersonBoyfriend, Date: "2025-04-01"},
		{Amount: 20, Description: "b", Category: "Ropa", Card: "efectivo", PaidBy: core.PersonGirlfriend, Date: "2025-04-02"},
	}
	bundle := Snapshot(original, nil, nil, nil, exportNow)

	var buf bytes.Buffer
	if err := bundle.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	parsed, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Import(context.Background(), parsed, targets, nil); err != nil {
		t.Fatalf("Import: %v", err)
	}

	// Set equality ignoring identifiers and timestamps.
	got := map[string]bool{}
	for _, d := range store.Docs(core.CollectionExpenses) {
		got[d["description"].(string)] = true
	}
	for _, e := range original {
		if !got[e.Description] {
			t.Errorf("record %q missing after round trip", e.Description)
		}
	}
	if len(got) != len(original) {
		t.Errorf("got %d records, want %d", len(got), len(original))
	}
}
