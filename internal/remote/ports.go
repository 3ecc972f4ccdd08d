// Package remote defines the boundary to the remote document store: a
// named collection supporting live full-snapshot subscriptions and
// pass-through mutations. The store is an opaque collaborator; the
// package only holds the ports plus the sentinel values mutations need.
package remote

import (
	"context"
	"fmt"
)

// Document is a raw record as delivered by the store. Every document in
// a snapshot carries its storage identifier under the "id" key.
type Document = map[string]any

// Snapshot is a full-collection state delivered by a subscription.
// Membership and ordering are authoritative while the subscription is
// healthy.
type Snapshot struct {
	Docs []Document
}

// SubscribeOptions carries optional ordering constraints for a
// subscription. The zero value means store-native order.
type SubscribeOptions struct {
	OrderBy    string
	Descending bool
}

// Subscription is a live feed of collection snapshots. Exactly one of
// Snapshots and Errors delivers at a time; after an error the feed is
// dead and must be re-established by the caller. Cancel is idempotent.
type Subscription struct {
	Snapshots <-chan Snapshot
	Errors    <-chan error
	Cancel    func()
}

type deleteSentinel struct{}
type timestampSentinel struct{}

// Delete marks a field for removal in an update payload. Distinct from
// setting the field to an empty value.
var Delete = deleteSentinel{}

// ServerTimestamp marks a field to be stamped with the store's clock at
// write time.
var ServerTimestamp = timestampSentinel{}

// IsDelete reports whether v is the field-removal sentinel.
func IsDelete(v any) bool {
	_, ok := v.(deleteSentinel)
	return ok
}

// IsServerTimestamp reports whether v is the server-clock sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(timestampSentinel)
	return ok
}

// Collection is a single named document collection.
type Collection interface {
	// Subscribe opens a live snapshot feed. The feed terminates when ctx
	// is cancelled, Cancel is called, or an error is delivered.
	Subscribe(ctx context.Context, opts SubscribeOptions) (*Subscription, error)

	// Add stores a new document and returns its assigned identifier.
	Add(ctx context.Context, doc Document) (string, error)

	// Update applies a partial document. Values equal to Delete remove
	// the field; values equal to ServerTimestamp are stamped remotely.
	Update(ctx context.Context, id string, doc Document) error

	// Remove deletes the document. Removing a missing id is an error.
	Remove(ctx context.Context, id string) error
}

// Store hands out collections by name.
type Store interface {
	Collection(name string) Collection
	Close() error
}

// WriteError wraps a failed mutation. The caller owns retry; the sync
// layer never retries writes, only subscriptions.
type WriteError struct {
	Collection string
	Op         string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("remote write %s on %s: %v", e.Op, e.Collection, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// SubscriptionError wraps a failed or broken subscription; receiving it
// sends the owning manager into its degraded/retrying cycle.
type SubscriptionError struct {
	Collection string
	Err        error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("remote subscription on %s: %v", e.Collection, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
