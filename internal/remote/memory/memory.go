// Package memory implements the remote document store boundary fully
// in process. It backs local development and every test that needs a
// controllable remote, including injectable subscription and write
// failures.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ryuko2/dinerito/internal/remote"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrWritesDisabled  = errors.New("writes disabled")
	ErrSubscribeFailed = errors.New("subscribe disabled")
)

// Store is an in-memory remote document store.
type Store struct {
	mu          sync.Mutex
	collections map[string]*Collection
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the server clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]*Collection),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Collection(name string) remote.Collection {
	return s.collection(name)
}

func (s *Store) collection(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &Collection{name: name, store: s}
		s.collections[name] = c
	}
	return c
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.collections {
		c.closeSubscribers()
	}
	return nil
}

// Seed inserts a raw document directly, bypassing timestamp stamping.
// Test helper for wiring up legacy-shaped data.
func (s *Store) Seed(collection string, doc remote.Document) string {
	c := s.collection(collection)
	c.mu.Lock()
	id := uuid.NewString()
	stored := cloneDoc(doc)
	c.docs = append(c.docs, entry{id: id, doc: stored})
	c.mu.Unlock()
	c.broadcast()
	return id
}

// Docs returns the current raw contents of a collection, for assertions.
func (s *Store) Docs(collection string) []remote.Document {
	c := s.collection(collection)
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]remote.Document, 0, len(c.docs))
	for _, e := range c.docs {
		d := cloneDoc(e.doc)
		d["id"] = e.id
		out = append(out, d)
	}
	return out
}

type entry struct {
	id  string
	doc remote.Document
}

type subscriber struct {
	snaps  chan remote.Snapshot
	errs   chan error
	opts   remote.SubscribeOptions
	closed bool
}

// Collection holds the documents and live subscribers for one name.
type Collection struct {
	name  string
	store *Store

	mu    sync.Mutex
	docs  []entry
	subs  []*subscriber

	// Failure injection for tests.
	failSubscribe bool
	failWrites    bool
}

// FailSubscribe makes every new Subscribe call fail until re-enabled,
// and drops an error on all live subscriptions.
func (s *Store) FailSubscribe(collection string, fail bool) {
	c := s.collection(collection)
	c.mu.Lock()
	c.failSubscribe = fail
	subs := append([]*subscriber(nil), c.subs...)
	c.mu.Unlock()
	if fail {
		for _, sub := range subs {
			select {
			case sub.errs <- &remote.SubscriptionError{Collection: collection, Err: ErrSubscribeFailed}:
			default:
			}
		}
	}
}

// FailWrites makes Add/Update/Remove fail until re-enabled.
func (s *Store) FailWrites(collection string, fail bool) {
	c := s.collection(collection)
	c.mu.Lock()
	c.failWrites = fail
	c.mu.Unlock()
}

func (c *Collection) Subscribe(ctx context.Context, opts remote.SubscribeOptions) (*remote.Subscription, error) {
	c.mu.Lock()
	if c.failSubscribe {
		c.mu.Unlock()
		return nil, &remote.SubscriptionError{Collection: c.name, Err: ErrSubscribeFailed}
	}
	sub := &subscriber{
		snaps: make(chan remote.Snapshot, 8),
		errs:  make(chan error, 1),
		opts:  opts,
	}
	c.subs = append(c.subs, sub)
	// Initial full snapshot before any change notification. Sent under
	// the lock like broadcast, so a concurrent Close cannot close the
	// channel first; the fresh buffer always has room.
	sub.snaps <- c.snapshotLocked(opts)
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { c.drop(sub) })
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()

	return &remote.Subscription{
		Snapshots: sub.snaps,
		Errors:    sub.errs,
		Cancel:    cancel,
	}, nil
}

func (c *Collection) Add(_ context.Context, doc remote.Document) (string, error) {
	c.mu.Lock()
	if c.failWrites {
		c.mu.Unlock()
		return "", &remote.WriteError{Collection: c.name, Op: "add", Err: ErrWritesDisabled}
	}
	id := uuid.NewString()
	stored := c.resolveSentinels(doc)
	c.docs = append(c.docs, entry{id: id, doc: stored})
	c.mu.Unlock()

	c.broadcast()
	return id, nil
}

func (c *Collection) Update(_ context.Context, id string, doc remote.Document) error {
	c.mu.Lock()
	if c.failWrites {
		c.mu.Unlock()
		return &remote.WriteError{Collection: c.name, Op: "update", Err: ErrWritesDisabled}
	}
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return &remote.WriteError{Collection: c.name, Op: "update", Err: fmt.Errorf("%w: %s", ErrNotFound, id)}
	}
	target := c.docs[idx].doc
	for k, v := range doc {
		switch {
		case remote.IsDelete(v):
			delete(target, k)
		case remote.IsServerTimestamp(v):
			target[k] = c.store.now().UTC().Format(time.RFC3339)
		default:
			target[k] = v
		}
	}
	c.mu.Unlock()

	c.broadcast()
	return nil
}

func (c *Collection) Remove(_ context.Context, id string) error {
	c.mu.Lock()
	if c.failWrites {
		c.mu.Unlock()
		return &remote.WriteError{Collection: c.name, Op: "remove", Err: ErrWritesDisabled}
	}
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return &remote.WriteError{Collection: c.name, Op: "remove", Err: fmt.Errorf("%w: %s", ErrNotFound, id)}
	}
	c.docs = append(c.docs[:idx], c.docs[idx+1:]...)
	c.mu.Unlock()

	c.broadcast()
	return nil
}

func (c *Collection) resolveSentinels(doc remote.Document) remote.Document {
	stored := make(remote.Document, len(doc))
	for k, v := range doc {
		switch {
		case remote.IsDelete(v):
			// Deleting a field on add is a no-op.
		case remote.IsServerTimestamp(v):
			stored[k] = c.store.now().UTC().Format(time.RFC3339)
		default:
			stored[k] = v
		}
	}
	return stored
}

func (c *Collection) indexLocked(id string) int {
	for i, e := range c.docs {
		if e.id == id {
			return i
		}
	}
	return -1
}

func (c *Collection) snapshotLocked(opts remote.SubscribeOptions) remote.Snapshot {
	docs := make([]remote.Document, 0, len(c.docs))
	for _, e := range c.docs {
		d := cloneDoc(e.doc)
		d["id"] = e.id
		docs = append(docs, d)
	}
	if opts.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			a := fmt.Sprint(docs[i][opts.OrderBy])
			b := fmt.Sprint(docs[j][opts.OrderBy])
			if opts.Descending {
				return a > b
			}
			return a < b
		})
	}
	return remote.Snapshot{Docs: docs}
}

// broadcast fans the current snapshot out to every live subscriber.
// Sends happen under c.mu so a racing drop cannot close a channel this
// is about to send on; the channels are buffered, so holding the lock
// never blocks on a consumer.
func (c *Collection) broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		if sub.closed {
			continue
		}
		snap := c.snapshotLocked(sub.opts)
		select {
		case sub.snaps <- snap:
		default:
			// Buffer full. Evict the oldest pending snapshot so a slow
			// subscriber still ends up observing the newest state;
			// intermediate snapshots are disposable, the latest is not.
			select {
			case <-sub.snaps:
			default:
			}
			select {
			case sub.snaps <- snap:
			default:
			}
		}
	}
}

func (c *Collection) drop(sub *subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	if !sub.closed {
		sub.closed = true
		close(sub.snaps)
	}
}

func (c *Collection) closeSubscribers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		if !sub.closed {
			sub.closed = true
			close(sub.snaps)
		}
	}
	c.subs = nil
}

func cloneDoc(doc remote.Document) remote.Document {
	out := make(remote.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
