package friends

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueriesStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	store.Put(Record{ID: "a", Friends: []string{"b"}})
	store.Put(Record{ID: "b", Friends: []string{"a"}})
	store.Put(Record{ID: "c", Requests: []IncomingRequest{{From: "a", CreatedAt: time.Now().UTC()}}})

	q := NewQueries(store)

	cases := []struct {
		name        string
		self, other string
		want        Status
	}{
		{"self", "a", "a", StatusSelf},
		{"friends", "a", "b", StatusFriends},
		{"pendingSent", "a", "c", StatusPendingSent},
		{"pendingReceived", "c", "a", StatusPendingReceived},
		{"none", "b", "c", StatusNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := q.Status(ctx, tc.self, tc.other)
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}

	if _, err := q.Status(ctx, "a", "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found got %v", err)
	}
}

func TestFriendsVisibilityGate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	store.Put(Record{ID: "a", Friends: []string{"b"}})
	store.Put(Record{ID: "b", Friends: []string{"a"}})
	// c holds a stale one-sided edge toward a.
	store.Put(Record{ID: "c", Friends: []string{"a"}})

	q := NewQueries(store)

	own, err := q.Friends(ctx, "a", "a")
	if err != nil {
		t.Fatalf("own list: %v", err)
	}
	if len(own) != 1 || own[0] != "b" {
		t.Fatalf("unexpected list %v", own)
	}

	mutual, err := q.Friends(ctx, "b", "a")
	if err != nil {
		t.Fatalf("mutual list: %v", err)
	}
	if len(mutual) != 1 {
		t.Fatalf("unexpected list %v", mutual)
	}

	// One-sided presence is not enough in either direction.
	if _, err := q.Friends(ctx, "c", "a"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden got %v", err)
	}
	if _, err := q.Friends(ctx, "a", "c"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestReceivedAndSentListings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	store.Put(Record{ID: "a"})
	store.Put(Record{ID: "b", Requests: []IncomingRequest{{From: "a", CreatedAt: now}}})
	store.Put(Record{ID: "c", Requests: []IncomingRequest{{From: "a", CreatedAt: now.Add(time.Minute)}, {From: "b", CreatedAt: now}}})

	q := NewQueries(store)

	received, err := q.Received(ctx, "c")
	if err != nil {
		t.Fatalf("received: %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("expected two received requests got %+v", received)
	}

	sent, err := q.Sent(ctx, "a")
	if err != nil {
		t.Fatalf("sent: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("expected two sent requests got %+v", sent)
	}
	if sent[0].To != "b" || sent[1].To != "c" {
		t.Fatalf("expected chronological order b,c got %+v", sent)
	}

	if _, err := q.Sent(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found got %v", err)
	}
}

func TestPurgeScrubsAllProjections(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore()
	now := time.Now().UTC()
	store.Put(Record{ID: "a", Friends: []string{"b"}})
	store.Put(Record{ID: "b", Friends: []string{"a"}})
	store.Put(Record{ID: "c", Requests: []IncomingRequest{{From: "a", CreatedAt: now}}})

	if err := store.Purge(ctx, "a"); err != nil {
		t.Fatalf("purge: %v", err)
	}

	b, err := store.Record(ctx, "b")
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if b.HasFriend("a") {
		t.Fatalf("expected a removed from b's friends, got %v", b.Friends)
	}

	sent, err := store.SentRequests(ctx, "a")
	if err != nil {
		t.Fatalf("sent: %v", err)
	}
	if len(sent) != 0 {
		t.Fatalf("expected no outstanding requests from a, got %+v", sent)
	}
}
