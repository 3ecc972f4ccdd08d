// Package export reads and writes the portable backup bundle. A bundle
// is a single versioned JSON document covering the four user-curated
// collections; debts and recurring expenses are operational state and
// stay out of it, matching the file format the app has always produced.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Ryuko2/dinerito/internal/core"
	"github.com/Ryuko2/dinerito/internal/log"
	"github.com/Ryuko2/dinerito/internal/remote"
	"github.com/Ryuko2/dinerito/internal/sync"
)

var (
	ErrVersion = errors.New("unsupported bundle version")
	ErrShape   = errors.New("malformed bundle")
)

// Bundle is the persisted backup format. DataVersion is the schema
// version tag the records were written under.
type Bundle struct {
	DataVersion string             `json:"dataVersion"`
	ExportedAt  string             `json:"exportedAt"`
	Expenses    []core.Expense     `json:"expenses"`
	Goals       []core.SavingsGoal `json:"goals"`
	Incomes     []core.Income      `json:"incomes"`
	Budgets     []core.Budget      `json:"budgets"`
}

// Snapshot assembles a bundle from the current views.
func Snapshot(expenses []core.Expense, goals []core.SavingsGoal, incomes []core.Income, budgets []core.Budget, now time.Time) Bundle {
	return Bundle{
		DataVersion: core.SchemaVersion,
		ExportedAt:  now.UTC().Format(time.RFC3339),
		Expenses:    expenses,
		Goals:       goals,
		Incomes:     incomes,
		Budgets:     budgets,
	}
}

// Write serializes the bundle as indented JSON, the shape users see
// when they open the backup file.
func (b Bundle) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// Parse reads a bundle and validates its version tag and array shapes.
func Parse(r io.Reader) (Bundle, error) {
	var raw struct {
		DataVersion string          `json:"dataVersion"`
		ExportedAt  string          `json:"exportedAt"`
		Expenses    json.RawMessage `json:"expenses"`
		Goals       json.RawMessage `json:"goals"`
		Incomes     json.RawMessage `json:"incomes"`
		Budgets     json.RawMessage `json:"budgets"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrShape, err)
	}
	if raw.DataVersion != core.SchemaVersion {
		return Bundle{}, fmt.Errorf("%w: %q", ErrVersion, raw.DataVersion)
	}

	b := Bundle{DataVersion: raw.DataVersion, ExportedAt: raw.ExportedAt}
	for _, part := range []struct {
		name string
		src  json.RawMessage
		dst  any
	}{
		{"expenses", raw.Expenses, &b.Expenses},
		{"goals", raw.Goals, &b.Goals},
		{"incomes", raw.Incomes, &b.Incomes},
		{"budgets", raw.Budgets, &b.Budgets},
	} {
		if len(part.src) == 0 {
			continue
		}
		if err := json.Unmarshal(part.src, part.dst); err != nil {
			return Bundle{}, fmt.Errorf("%w: %s is not an array of records", ErrShape, part.name)
		}
	}
	return b, nil
}

// Counts reports how many records an import wrote per collection.
type Counts map[string]int

// Import replays every bundle record through the normal add path.
// Records get fresh identifiers; importing is additive, not a restore.
func Import(ctx context.Context, b Bundle, targets map[string]sync.Syncer, logger *log.Logger) (Counts, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentExport)

	counts := make(Counts)
	for _, part := range []struct {
		collection string
		records    any
	}{
		{core.CollectionExpenses, b.Expenses},
		{core.CollectionGoals, b.Goals},
		{core.CollectionIncomes, b.Incomes},
		{core.CollectionBudgets, b.Budgets},
	} {
		docs, err := toDocuments(part.records)
		if err != nil {
			return counts, err
		}
		if len(docs) == 0 {
			continue
		}
		target, ok := targets[part.collection]
		if !ok {
			return counts, fmt.Errorf("no target for collection %q", part.collection)
		}
		for _, doc := range docs {
			delete(doc, "id")
			if _, err := target.Add(ctx, doc); err != nil {
				return counts, fmt.Errorf("import %s: %w", part.collection, err)
			}
			counts[part.collection]++
		}
		logger.Info("records imported",
			log.FieldCollection, part.collection, log.FieldCount, counts[part.collection])
	}
	return counts, nil
}

func toDocuments(records any) ([]remote.Document, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	var docs []remote.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
