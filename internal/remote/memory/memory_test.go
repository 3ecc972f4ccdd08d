package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ryuko2/dinerito/internal/remote"
)

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func recvSnapshot(t *testing.T, sub *remote.Subscription) remote.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots:
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
	return remote.Snapshot{}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	s := New()
	defer s.Close()
	s.Seed("expenses", remote.Document{"description": "uno"})
	s.Seed("expenses", remote.Document{"description": "dos"})

	sub, err := s.Collection("expenses").Subscribe(context.Background(), remote.SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	snap := recvSnapshot(t, sub)
	if len(snap.Docs) != 2 {
		t.Fatalf("initial snapshot has %d docs", len(snap.Docs))
	}
	for _, d := range snap.Docs {
		if d["id"] == "" || d["id"] == nil {
			t.Errorf("doc without id: %v", d)
		}
	}
}

func TestSnapshotOrdering(t *testing.T) {
	s := New()
	defer s.Close()
	s.Seed("expenses", remote.Document{"createdAt": "2025-01-01T00:00:00Z", "description": "viejo"})
	s.Seed("expenses", remote.Document{"createdAt": "2025-02-01T00:00:00Z", "description": "nuevo"})

	sub, err := s.Collection("expenses").Subscribe(context.Background(), remote.SubscribeOptions{
		OrderBy: "createdAt", Descending: true,
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	snap := recvSnapshot(t, sub)
	if snap.Docs[0]["description"] != "nuevo" || snap.Docs[1]["description"] != "viejo" {
		t.Errorf("order = %v, %v", snap.Docs[0]["description"], snap.Docs[1]["description"])
	}
}

func TestAddResolvesServerTimestamp(t *testing.T) {
	s := New(WithClock(fixedClock(t)))
	defer s.Close()

	col := s.Collection("expenses")
	id, err := col.Add(context.Background(), remote.Document{
		"description": "pan",
		"createdAt":   remote.ServerTimestamp,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	docs := s.Docs("expenses")
	if got := docs[0]["createdAt"]; got != "2025-03-10T12:00:00Z" {
		t.Errorf("createdAt = %v", got)
	}
}

func TestUpdateSentinels(t *testing.T) {
	s := New(WithClock(fixedClock(t)))
	defer s.Close()
	id := s.Seed("expenses", remote.Document{"description": "pan", "notes": "integral"})

	col := s.Collection("expenses")
	err := col.Update(context.Background(), id, remote.Document{
		"description": "pan dulce",
		"notes":       remote.Delete,
		"updatedAt":   remote.ServerTimestamp,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	doc := s.Docs("expenses")[0]
	if doc["description"] != "pan dulce" {
		t.Errorf("description = %v", doc["description"])
	}
	if _, present := doc["notes"]; present {
		t.Error("deleted field survived")
	}
	if doc["updatedAt"] != "2025-03-10T12:00:00Z" {
		t.Errorf("updatedAt = %v", doc["updatedAt"])
	}
}

func TestUpdateUnknownID(t *testing.T) {
	s := New()
	defer s.Close()

	err := s.Collection("expenses").Update(context.Background(), "nope", remote.Document{"a": 1})
	var we *remote.WriteError
	if !errors.As(err, &we) {
		t.Fatalf("err = %v, want WriteError", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRemoveBroadcasts(t *testing.T) {
	s := New()
	defer s.Close()
	id := s.Seed("expenses", remote.Document{"description": "pan"})

	sub, err := s.Collection("expenses").Subscribe(context.Background(), remote.SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()
	recvSnapshot(t, sub) // initial

	if err := s.Collection("expenses").Remove(context.Background(), id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	snap := recvSnapshot(t, sub)
	if len(snap.Docs) != 0 {
		t.Errorf("snapshot after remove has %d docs", len(snap.Docs))
	}
}

func TestFailSubscribeNotifiesLiveSubscribers(t *testing.T) {
	s := New()
	defer s.Close()

	sub, err := s.Collection("expenses").Subscribe(context.Background(), remote.SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()
	recvSnapshot(t, sub)

	s.FailSubscribe("expenses", true)
	select {
	case err := <-sub.Errors:
		var se *remote.SubscriptionError
		if !errors.As(err, &se) || se.Collection != "expenses" {
			t.Errorf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error delivered")
	}

	if _, err := s.Collection("expenses").Subscribe(context.Background(), remote.SubscribeOptions{}); err == nil {
		t.Error("Subscribe succeeded while disabled")
	}
}

func TestWritesRacingCancelDoNotPanic(t *testing.T) {
	s := New()
	defer s.Close()
	col := s.Collection("expenses")

	for i := 0; i < 20; i++ {
		sub, err := col.Subscribe(context.Background(), remote.SubscribeOptions{})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 20; j++ {
				col.Add(context.Background(), remote.Document{"n": j})
			}
		}()
		sub.Cancel()
		<-done
	}
}

func TestSlowSubscriberObservesLatestState(t *testing.T) {
	s := New()
	defer s.Close()
	col := s.Collection("expenses")

	sub, err := col.Subscribe(context.Background(), remote.SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	// Overflow the subscription buffer without draining it. Older
	// pending snapshots may be evicted, but the newest must survive.
	for i := 0; i < 20; i++ {
		if _, err := col.Add(context.Background(), remote.Document{"n": i}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	var last remote.Snapshot
	var got bool
	for {
		select {
		case snap := <-sub.Snapshots:
			last, got = snap, true
			continue
		default:
		}
		break
	}
	if !got {
		t.Fatal("no snapshot pending")
	}
	if len(last.Docs) != 20 {
		t.Errorf("latest pending snapshot has %d docs, want 20", len(last.Docs))
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := New()
	defer s.Close()
	s.Seed("expenses", remote.Document{"description": "pan"})

	docs := s.Docs("expenses")
	docs[0]["description"] = "mutated"

	if got := s.Docs("expenses")[0]["description"]; got != "pan" {
		t.Errorf("store leaked its internal map: %v", got)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	s := New()
	defer s.Close()

	sub, err := s.Collection("expenses").Subscribe(context.Background(), remote.SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	sub.Cancel()
	sub.Cancel() // must not panic

	// A write after cancellation must not block on the dead subscriber.
	if _, err := s.Collection("expenses").Add(context.Background(), remote.Document{"a": 1}); err != nil {
		t.Fatalf("Add: %v", err)
	}
}
