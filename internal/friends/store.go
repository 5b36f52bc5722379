package friends

import (
	"context"
	"time"
)

// GraphStore is the only write path into the relationship fields of a user
// record. Every mutation is scoped to a single record and must be applied
// atomically by the store with "insert if absent" / "remove if present"
// semantics, so concurrent duplicate calls converge on the same post-state
// without errors. There is no multi-record transaction; the service layer
// applies the two sides of an edge independently.
type GraphStore interface {
	// Record loads one user's graph projection, returning ErrUserNotFound
	// when the id does not resolve.
	Record(ctx context.Context, id string) (Record, error)

	// AddFriend inserts friendID into userID's friends set only if absent.
	AddFriend(ctx context.Context, userID, friendID string) error
	// RemoveFriend removes friendID from userID's friends set if present.
	RemoveFriend(ctx context.Context, userID, friendID string) error

	// AddRequest appends a pending request from the given sender to userID's
	// record only if no request from that sender exists.
	AddRequest(ctx context.Context, userID, from string, createdAt time.Time) error
	// RemoveRequest removes any pending request from the given sender.
	RemoveRequest(ctx context.Context, userID, from string) error

	// SentRequests scans every record for pending requests whose sender is
	// the given user.
	SentRequests(ctx context.Context, from string) ([]SentRequest, error)

	// Purge removes the given id from every other record's friends set and
	// pending requests. Used by the account-deletion sweep; idempotent.
	Purge(ctx context.Context, userID string) error
}
