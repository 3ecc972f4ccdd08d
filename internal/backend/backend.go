// Package backend assembles the remote store and the per-collection
// sync managers from configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/Ryuko2/dinerito/internal/config"
	"github.com/Ryuko2/dinerito/internal/core"
	"github.com/Ryuko2/dinerito/internal/localcache"
	"github.com/Ryuko2/dinerito/internal/log"
	"github.com/Ryuko2/dinerito/internal/normalize"
	"github.com/Ryuko2/dinerito/internal/remote"
	"github.com/Ryuko2/dinerito/internal/remote/feed"
	"github.com/Ryuko2/dinerito/internal/remote/memory"
	"github.com/Ryuko2/dinerito/internal/sync"
)

// Set holds one manager per synchronized collection, typed where the
// projection engine needs typed views and addressable by name where
// collections are handled uniformly.
type Set struct {
	Expenses  *sync.Manager[core.Expense]
	Incomes   *sync.Manager[core.Income]
	Budgets   *sync.Manager[core.Budget]
	Debts     *sync.Manager[core.Debt]
	Recurring *sync.Manager[core.RecurringExpense]
	Goals     *sync.Manager[core.SavingsGoal]
}

// Backend is a running remote store plus its manager set.
type Backend struct {
	Store    remote.Store
	Managers *Set
}

// New creates the remote store named by cfg.DataBackend and a manager
// set on top of it. Managers are not started; call StartAll.
func New(cfg *config.Config, cache *localcache.Cache, logger *log.Logger) (*Backend, error) {
	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	mcfg := func(orderBy string) sync.Config {
		return sync.Config{
			Subscribe: remote.SubscribeOptions{OrderBy: orderBy, Descending: true},
			RetryBase: cfg.RetryBase,
			RetryCap:  cfg.RetryCap,
		}
	}

	set := &Set{
		Expenses: sync.New(core.CollectionExpenses,
			store.Collection(core.CollectionExpenses), cache, normalize.Expense, mcfg("createdAt"), logger),
		Incomes: sync.New(core.CollectionIncomes,
			store.Collection(core.CollectionIncomes), cache, normalize.Income, mcfg("createdAt"), logger),
		Budgets: sync.New(core.CollectionBudgets,
			store.Collection(core.CollectionBudgets), cache, normalize.Budget, mcfg("createdAt"), logger),
		Debts: sync.New(core.CollectionDebts,
			store.Collection(core.CollectionDebts), cache, normalize.Debt, mcfg("createdAt"), logger),
		Recurring: sync.New(core.CollectionRecurring,
			store.Collection(core.CollectionRecurring), cache, normalize.Recurring, mcfg("createdAt"), logger),
		Goals: sync.New(core.CollectionGoals,
			store.Collection(core.CollectionGoals), cache, normalize.Goal, mcfg("createdAt"), logger),
	}

	return &Backend{Store: store, Managers: set}, nil
}

func newStore(cfg *config.Config, logger *log.Logger) (remote.Store, error) {
	switch cfg.DataBackend {
	case "memory":
		return memory.New(), nil
	case "feed":
		return feed.New(feed.Config{
			BaseURL:      cfg.FeedBaseURL,
			AMQPURL:      cfg.AMQPURL,
			AMQPExchange: cfg.AMQPExchange,
			PollInterval: cfg.PollInterval,
			HTTPTimeout:  cfg.HTTPTimeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}

// StartAll launches every manager's subscription loop.
func (s *Set) StartAll(ctx context.Context) {
	s.Expenses.Start(ctx)
	s.Incomes.Start(ctx)
	s.Budgets.Start(ctx)
	s.Debts.Start(ctx)
	s.Recurring.Start(ctx)
	s.Goals.Start(ctx)
}

// CloseAll stops every manager, cancelling any pending retry timer.
func (s *Set) CloseAll() {
	s.Expenses.Close()
	s.Incomes.Close()
	s.Budgets.Close()
	s.Debts.Close()
	s.Recurring.Close()
	s.Goals.Close()
}

// All returns the managers in the fixed collection order.
func (s *Set) All() []sync.Syncer {
	return []sync.Syncer{s.Expenses, s.Incomes, s.Budgets, s.Debts, s.Recurring, s.Goals}
}

// ByName returns the manager for a collection name, nil if unknown.
func (s *Set) ByName(name string) sync.Syncer {
	for _, m := range s.All() {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

// Targets returns the name-to-manager map used by import and legacy
// migration.
func (s *Set) Targets() map[string]sync.Syncer {
	out := make(map[string]sync.Syncer)
	for _, m := range s.All() {
		out[m.Name()] = m
	}
	return out
}
