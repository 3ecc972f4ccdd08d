// Package sync keeps a live, eventually-consistent in-memory view of
// each remote collection, backed by the local durable cache. The view
// is replaced atomically on every delivered snapshot; when the remote
// subscription breaks, the manager degrades to the cached snapshot and
// retries with capped exponential backoff, indefinitely.
package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Ryuko2/dinerito/internal/core"
	"github.com/Ryuko2/dinerito/internal/localcache"
	"github.com/Ryuko2/dinerito/internal/log"
	"github.com/Ryuko2/dinerito/internal/remote"
)

// State is the manager's position in its subscription lifecycle.
type State string

const (
	StateInitializing State = "initializing"
	StateSubscribing  State = "subscribing"
	StateLive         State = "live"
	StateDegraded     State = "degraded"
	StateRetrying     State = "retrying"
)

const (
	// DefaultRetryBase matches the original fixed retry delay; backoff
	// doubles from here up to DefaultRetryCap and resets on the next
	// healthy snapshot.
	DefaultRetryBase = 3 * time.Second
	DefaultRetryCap  = 60 * time.Second
)

// Normalizer converts one raw document (with its storage key) into the
// typed record for this collection.
type Normalizer[T any] func(raw remote.Document, id string) T

// Config tunes a manager. Zero values take the defaults above.
type Config struct {
	Subscribe remote.SubscribeOptions
	RetryBase time.Duration
	RetryCap  time.Duration
}

// Syncer is the type-erased face of a Manager, used where collections
// are handled uniformly (HTTP surface, status reporting, import).
type Syncer interface {
	Name() string
	State() State
	Err() error
	View() any
	Add(ctx context.Context, doc remote.Document) (string, error)
	Update(ctx context.Context, id string, set remote.Document, deletes []string) error
	Remove(ctx context.Context, id string) error
}

// Manager owns the synchronized view of one collection.
type Manager[T any] struct {
	name   string
	col    remote.Collection
	cache  *localcache.Cache
	norm   Normalizer[T]
	cfg    Config
	logger *log.Logger

	mu      sync.RWMutex
	view    []T
	lastErr error
	state   State

	obsMu     sync.Mutex
	observers []func([]T)

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a manager and immediately exposes the cached snapshot as
// the current view, so the caller has usable data before any remote
// round-trip. Call Start to begin synchronizing.
func New[T any](name string, col remote.Collection, cache *localcache.Cache, norm Normalizer[T], cfg Config, logger *log.Logger) *Manager[T] {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultRetryBase
	}
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = DefaultRetryCap
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	m := &Manager[T]{
		name:   name,
		col:    col,
		cache:  cache,
		norm:   norm,
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentSync).With(log.FieldCollection, name),
		state:  StateInitializing,
		done:   make(chan struct{}),
	}
	var cached []T
	if cache != nil {
		cache.Get(name, &cached)
	}
	m.view = cached
	if len(cached) > 0 {
		m.logger.Info("view initialized from cache", log.FieldCount, len(cached))
	}
	return m
}

// Start launches the subscription loop. The loop runs until ctx is
// cancelled or Close is called.
func (m *Manager[T]) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.run(ctx)
}

// Close tears the subscription down and waits for the loop to exit,
// cancelling any pending retry timer.
func (m *Manager[T]) Close() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

func (m *Manager[T]) Name() string { return m.name }

// State returns the current lifecycle state.
func (m *Manager[T]) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Err returns the current subscription error, nil while Live.
func (m *Manager[T]) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Snapshot returns a copy of the current view. Readers never observe a
// partially applied snapshot.
func (m *Manager[T]) Snapshot() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, len(m.view))
	copy(out, m.view)
	return out
}

// View implements Syncer.
func (m *Manager[T]) View() any { return m.Snapshot() }

// Observe registers fn to be called with the new view after every
// atomic replacement. Callbacks run on the subscription goroutine and
// must not block.
func (m *Manager[T]) Observe(fn func([]T)) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.observers = append(m.observers, fn)
}

// Add writes a new document through to the remote store, stamping the
// schema version and a server-assigned creation time. The view is not
// touched; it changes when the subscription delivers the result.
// Callers supplying their own createdAt (the legacy migration) keep it.
func (m *Manager[T]) Add(ctx context.Context, doc remote.Document) (string, error) {
	payload := make(remote.Document, len(doc)+2)
	for k, v := range doc {
		payload[k] = v
	}
	delete(payload, "id") // ids are store-assigned, never client-supplied
	payload["schemaVersion"] = core.SchemaVersion
	if _, ok := payload["createdAt"]; !ok {
		payload["createdAt"] = remote.ServerTimestamp
	}
	id, err := m.col.Add(ctx, payload)
	if err != nil {
		return "", m.writeErr(log.OpAdd, err)
	}
	return id, nil
}

// Update applies a partial document. Field names in deletes are removed
// remotely, which is how optional attributes are cleared as opposed to
// set empty.
func (m *Manager[T]) Update(ctx context.Context, id string, set remote.Document, deletes []string) error {
	payload := make(remote.Document, len(set)+len(deletes)+1)
	for k, v := range set {
		payload[k] = v
	}
	for _, f := range deletes {
		payload[f] = remote.Delete
	}
	payload["updatedAt"] = remote.ServerTimestamp
	if err := m.col.Update(ctx, id, payload); err != nil {
		return m.writeErr(log.OpUpdate, err)
	}
	return nil
}

// Remove deletes the document remotely. Terminal and irreversible.
func (m *Manager[T]) Remove(ctx context.Context, id string) error {
	if err := m.col.Remove(ctx, id); err != nil {
		return m.writeErr(log.OpRemove, err)
	}
	return nil
}

func (m *Manager[T]) writeErr(op string, err error) error {
	var we *remote.WriteError
	if !errors.As(err, &we) {
		err = &remote.WriteError{Collection: m.name, Op: op, Err: err}
	}
	m.logger.Warn("remote write failed", log.FieldOperation, op, log.FieldError, err)
	return err
}

// run is the subscription state machine. Exactly one subscription is
// active at a time; the previous one is cancelled before the next
// attempt.
func (m *Manager[T]) run(ctx context.Context) {
	defer close(m.done)
	delay := m.cfg.RetryBase

	for {
		if ctx.Err() != nil {
			return
		}
		m.setState(StateSubscribing)
		sub, err := m.col.Subscribe(ctx, m.cfg.Subscribe)
		if err != nil {
			m.degrade(err)
			if !m.sleep(ctx, delay) {
				return
			}
			delay = m.nextDelay(delay)
			continue
		}

		delay = m.consume(ctx, sub, delay)
		sub.Cancel()
		if ctx.Err() != nil {
			return
		}
		if !m.sleep(ctx, delay) {
			return
		}
		delay = m.nextDelay(delay)
	}
}

// consume drains one subscription until it errors, closes, or ctx is
// cancelled. Returns the retry delay to use next (reset while healthy).
func (m *Manager[T]) consume(ctx context.Context, sub *remote.Subscription, delay time.Duration) time.Duration {
	for {
		select {
		case <-ctx.Done():
			return delay
		case snap, ok := <-sub.Snapshots:
			if !ok {
				m.degrade(&remote.SubscriptionError{Collection: m.name, Err: errors.New("snapshot stream closed")})
				return delay
			}
			m.apply(snap)
			delay = m.cfg.RetryBase
		case err := <-sub.Errors:
			m.degrade(err)
			return delay
		}
	}
}

// apply normalizes every delivered document and replaces the view
// wholesale. The remote is the source of truth for membership and
// ordering while Live.
func (m *Manager[T]) apply(snap remote.Snapshot) {
	view := make([]T, len(snap.Docs))
	for i, d := range snap.Docs {
		id, _ := d["id"].(string)
		view[i] = m.norm(d, id)
	}

	m.mu.Lock()
	m.view = view
	m.lastErr = nil
	m.state = StateLive
	m.mu.Unlock()

	if m.cache != nil {
		m.cache.Set(m.name, view)
	}
	m.notify(view)
	m.logger.Debug("snapshot applied", log.FieldCount, len(view))
}

// degrade records the subscription error and, when the cache holds any
// prior records, swaps them in so the view never drops to empty.
func (m *Manager[T]) degrade(err error) {
	var cached []T
	if m.cache != nil {
		m.cache.Get(m.name, &cached)
	}

	m.mu.Lock()
	m.lastErr = err
	m.state = StateDegraded
	if len(cached) > 0 {
		m.view = cached
	}
	m.mu.Unlock()

	m.logger.Warn("subscription degraded, serving cached snapshot",
		log.FieldError, err, log.FieldCount, len(cached))
	if len(cached) > 0 {
		m.notify(cached)
	}
}

func (m *Manager[T]) notify(view []T) {
	m.obsMu.Lock()
	obs := append(([]func([]T))(nil), m.observers...)
	m.obsMu.Unlock()
	for _, fn := range obs {
		fn(view)
	}
}

func (m *Manager[T]) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// sleep waits out the retry delay; returns false if ctx was cancelled,
// so a discarded manager never fires a dangling retry.
func (m *Manager[T]) sleep(ctx context.Context, d time.Duration) bool {
	m.setState(StateRetrying)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (m *Manager[T]) nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > m.cfg.RetryCap {
		d = m.cfg.RetryCap
	}
	return d
}
