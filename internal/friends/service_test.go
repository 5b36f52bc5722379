package friends

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newServiceWithUsers(t *testing.T, ids ...string) (*Service, *MemoryGraphStore) {
	t.Helper()
	store := NewMemoryGraphStore()
	for _, id := range ids {
		store.Put(Record{ID: id})
	}
	svc := NewService(store, nil)
	svc.NowFunc = func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) }
	return svc, store
}

func mustRecord(t *testing.T, store GraphStore, id string) Record {
	t.Helper()
	rec, err := store.Record(context.Background(), id)
	if err != nil {
		t.Fatalf("load record %s: %v", id, err)
	}
	return rec
}

func TestSendAcceptHappyPath(t *testing.T) {
	ctx := context.Background()
	svc, store := newServiceWithUsers(t, "a", "b")

	if err := svc.SendRequest(ctx, "b", "a"); err != nil {
		t.Fatalf("send: %v", err)
	}

	a := mustRecord(t, store, "a")
	if len(a.Requests) != 1 || a.Requests[0].From != "b" {
		t.Fatalf("expected pending request from b, got %+v", a.Requests)
	}

	if err := svc.AcceptRequest(ctx, "a", "b"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	a = mustRecord(t, store, "a")
	b := mustRecord(t, store, "b")
	if !a.HasFriend("b") || !b.HasFriend("a") {
		t.Fatalf("expected symmetric edge, got a=%v b=%v", a.Friends, b.Friends)
	}
	if len(a.Requests) != 0 {
		t.Fatalf("expected request cleared, got %+v", a.Requests)
	}
}

func TestAcceptClearsExactlyOneRequest(t *testing.T) {
	ctx := context.Background()
	svc, store := newServiceWithUsers(t, "a", "b", "c")

	if err := svc.SendRequest(ctx, "b", "a"); err != nil {
		t.Fatalf("send b: %v", err)
	}
	if err := svc.SendRequest(ctx, "c", "a"); err != nil {
		t.Fatalf("send c: %v", err)
	}

	if err := svc.AcceptRequest(ctx, "a", "b"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	a := mustRecord(t, store, "a")
	if len(a.Requests) != 1 || a.Requests[0].From != "c" {
		t.Fatalf("expected c's request untouched, got %+v", a.Requests)
	}
}

func TestSendCancelRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, store := newServiceWithUsers(t, "a", "b")

	if err := svc.SendRequest(ctx, "a", "b"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := svc.CancelRequest(ctx, "a", "b"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	a := mustRecord(t, store, "a")
	b := mustRecord(t, store, "b")
	if len(a.Friends) != 0 || len(a.Requests) != 0 || len(b.Friends) != 0 || len(b.Requests) != 0 {
		t.Fatalf("expected pre-send state, got a=%+v b=%+v", a, b)
	}

	if got := DeriveStatus(a, b); got != StatusNone {
		t.Fatalf("expected status none got %q", got)
	}
}

func TestConflictingSendsResolveViaAccept(t *testing.T) {
	ctx := context.Background()
	svc, store := newServiceWithUsers(t, "a", "b")

	if err := svc.SendRequest(ctx, "a", "b"); err != nil {
		t.Fatalf("send a→b: %v", err)
	}

	// The reverse send is rejected rather than auto-accepted.
	if err := svc.SendRequest(ctx, "b", "a"); !errors.Is(err, ErrReverseRequestExists) {
		t.Fatalf("expected reverse request error got %v", err)
	}

	if err := svc.AcceptRequest(ctx, "b", "a"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	a := mustRecord(t, store, "a")
	b := mustRecord(t, store, "b")
	if !a.HasFriend("b") || !b.HasFriend("a") {
		t.Fatalf("expected friendship, got a=%v b=%v", a.Friends, b.Friends)
	}
	if len(b.Requests) != 0 {
		t.Fatalf("expected original request cleared, got %+v", b.Requests)
	}
}

func TestRemoveIsMutual(t *testing.T) {
	ctx := context.Background()
	svc, store := newServiceWithUsers(t, "a", "b")
	store.Put(Record{ID: "a", Friends: []string{"b"}})
	store.Put(Record{ID: "b", Friends: []string{"a"}})

	if err := svc.RemoveFriend(ctx, "a", "b"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	a := mustRecord(t, store, "a")
	b := mustRecord(t, store, "b")
	if a.HasFriend("b") || b.HasFriend("a") {
		t.Fatalf("expected edge gone, got a=%v b=%v", a.Friends, b.Friends)
	}
	if got := DeriveStatus(a, b); got != StatusNone {
		t.Fatalf("expected status none got %q", got)
	}
}

func TestTransitionUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceWithUsers(t, "a")

	if err := svc.SendRequest(ctx, "a", "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found got %v", err)
	}
	if err := svc.SendRequest(ctx, "ghost", "a"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found got %v", err)
	}
}

func TestSelfTargetNeverMutates(t *testing.T) {
	ctx := context.Background()
	svc, store := newServiceWithUsers(t, "a")

	if err := svc.SendRequest(ctx, "a", "a"); !errors.Is(err, ErrSelfTarget) {
		t.Fatalf("expected self target got %v", err)
	}

	a := mustRecord(t, store, "a")
	if len(a.Friends) != 0 || len(a.Requests) != 0 {
		t.Fatalf("expected untouched record, got %+v", a)
	}
}

func TestConcurrentDuplicateSends(t *testing.T) {
	ctx := context.Background()
	svc, store := newServiceWithUsers(t, "a", "b")

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.SendRequest(ctx, "a", "b")
		}(i)
	}
	wg.Wait()

	// Losers of the race may see success (their conditional append was a
	// no-op) or a duplicate rejection, but never a hard failure and never a
	// second entry.
	for i, err := range errs {
		if err != nil && !errors.Is(err, ErrDuplicateRequest) {
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}

	b := mustRecord(t, store, "b")
	count := 0
	for _, req := range b.Requests {
		if req.From == "a" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one entry from a, got %d (%+v)", count, b.Requests)
	}
}

func TestConcurrentMutualRemove(t *testing.T) {
	ctx := context.Background()
	svc, store := newServiceWithUsers(t, "a", "b")
	store.Put(Record{ID: "a", Friends: []string{"b"}})
	store.Put(Record{ID: "b", Friends: []string{"a"}})

	var wg sync.WaitGroup
	wg.Add(2)
	var errA, errB error
	go func() { defer wg.Done(); errA = svc.RemoveFriend(ctx, "a", "b") }()
	go func() { defer wg.Done(); errB = svc.RemoveFriend(ctx, "b", "a") }()
	wg.Wait()

	// Either side may lose the precondition race and see NotFriends; both
	// stores must still converge on no edge.
	for _, err := range []error{errA, errB} {
		if err != nil && !errors.Is(err, ErrNotFriends) {
			t.Fatalf("unexpected error %v", err)
		}
	}

	a := mustRecord(t, store, "a")
	b := mustRecord(t, store, "b")
	if a.HasFriend("b") || b.HasFriend("a") {
		t.Fatalf("expected converged removal, got a=%v b=%v", a.Friends, b.Friends)
	}
}

func TestConcurrentAcceptConverges(t *testing.T) {
	ctx := context.Background()
	svc, store := newServiceWithUsers(t, "a", "b")

	if err := svc.SendRequest(ctx, "b", "a"); err != nil {
		t.Fatalf("send: %v", err)
	}

	const callers = 4
	var wg sync.WaitGroup
	wg.Add(callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.AcceptRequest(ctx, "a", "b")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil && !errors.Is(err, ErrRequestNotFound) && !errors.Is(err, ErrAlreadyFriends) {
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
	}

	a := mustRecord(t, store, "a")
	b := mustRecord(t, store, "b")
	if !a.HasFriend("b") || !b.HasFriend("a") {
		t.Fatalf("expected symmetric edge, got a=%v b=%v", a.Friends, b.Friends)
	}
	if len(a.Friends) != 1 || len(b.Friends) != 1 {
		t.Fatalf("expected single entry per side, got a=%v b=%v", a.Friends, b.Friends)
	}
	if len(a.Requests) != 0 {
		t.Fatalf("expected request cleared, got %+v", a.Requests)
	}
}

// failingGraphStore makes one side of an edge write fail to exercise the
// partial-write path.
type failingGraphStore struct {
	GraphStore
	failUser string
}

func (s *failingGraphStore) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == s.failUser {
		return errors.New("store unavailable")
	}
	return s.GraphStore.AddFriend(ctx, userID, friendID)
}

func TestAcceptPartialWriteFailure(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryGraphStore()
	base.Put(Record{ID: "a", Requests: []IncomingRequest{{From: "b", CreatedAt: time.Now().UTC()}}})
	base.Put(Record{ID: "b"})

	svc := NewService(&failingGraphStore{GraphStore: base, failUser: "b"}, nil)

	err := svc.AcceptRequest(ctx, "a", "b")
	if !errors.Is(err, ErrPartialWrite) {
		t.Fatalf("expected partial write error got %v", err)
	}

	// The surviving side holds a one-sided edge; repair completes it.
	if err := svc.Repair(ctx, "a", "b"); err == nil {
		t.Fatal("expected repair against failing store to error")
	}

	healthy := NewService(base, nil)
	if err := healthy.Repair(ctx, "a", "b"); err != nil {
		t.Fatalf("repair: %v", err)
	}

	a := mustRecord(t, base, "a")
	b := mustRecord(t, base, "b")
	if !a.HasFriend("b") || !b.HasFriend("a") {
		t.Fatalf("expected repaired edge, got a=%v b=%v", a.Friends, b.Friends)
	}
}

func TestRepairIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newServiceWithUsers(t, "a", "b")
	store.Put(Record{ID: "a", Friends: []string{"b"}})

	for i := 0; i < 3; i++ {
		if err := svc.Repair(ctx, "a", "b"); err != nil {
			t.Fatalf("repair %d: %v", i, err)
		}
	}

	a := mustRecord(t, store, "a")
	b := mustRecord(t, store, "b")
	if len(a.Friends) != 1 || len(b.Friends) != 1 {
		t.Fatalf("expected single entries, got a=%v b=%v", a.Friends, b.Friends)
	}
}
