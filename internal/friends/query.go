package friends

import (
	"context"
	"fmt"
)

// Queries exposes the read-only projections of the relationship graph.
type Queries struct {
	store GraphStore
}

// NewQueries constructs the query side of the engine.
func NewQueries(store GraphStore) *Queries {
	if store == nil {
		panic("friends: graph store must not be nil")
	}
	return &Queries{store: store}
}

// Status derives the relationship state between self and other. The self
// check is answered without touching the store.
func (q *Queries) Status(ctx context.Context, selfID, otherID string) (Status, error) {
	if selfID == otherID {
		return StatusSelf, nil
	}

	self, err := q.store.Record(ctx, selfID)
	if err != nil {
		return StatusNone, fmt.Errorf("load caller record: %w", err)
	}
	other, err := q.store.Record(ctx, otherID)
	if err != nil {
		return StatusNone, fmt.Errorf("load target record: %w", err)
	}

	return DeriveStatus(self, other), nil
}

// Friends returns the owner's friends list. The owner may always view their
// own list; anyone else must be present on BOTH sides of the edge. Requiring
// bidirectional presence means a stale one-sided edge, left behind by a
// partial write, is never exposed as a real friendship.
func (q *Queries) Friends(ctx context.Context, requesterID, ownerID string) ([]string, error) {
	owner, err := q.store.Record(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load owner record: %w", err)
	}

	if requesterID != ownerID {
		requester, err := q.store.Record(ctx, requesterID)
		if err != nil {
			return nil, fmt.Errorf("load requester record: %w", err)
		}
		if !owner.HasFriend(requesterID) || !requester.HasFriend(ownerID) {
			return nil, ErrForbidden
		}
	}

	out := make([]string, len(owner.Friends))
	copy(out, owner.Friends)
	return out, nil
}

// Received lists the pending requests on the owner's own record.
func (q *Queries) Received(ctx context.Context, ownerID string) ([]IncomingRequest, error) {
	rec, err := q.store.Record(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load owner record: %w", err)
	}

	out := make([]IncomingRequest, len(rec.Requests))
	copy(out, rec.Requests)
	return out, nil
}

// Sent lists the owner's outgoing pending requests. These live on the
// recipients' records only, so this is a reverse-index scan.
func (q *Queries) Sent(ctx context.Context, ownerID string) ([]SentRequest, error) {
	if _, err := q.store.Record(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("load owner record: %w", err)
	}
	return q.store.SentRequests(ctx, ownerID)
}
