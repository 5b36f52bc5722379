package friends

import "time"

// Status is the derived relationship state between two users, computed from
// both records and never stored directly.
type Status string

const (
	StatusSelf            Status = "self"
	StatusFriends         Status = "friends"
	StatusPendingSent     Status = "pending_sent"
	StatusPendingReceived Status = "pending_received"
	StatusNone            Status = "none"
)

// IncomingRequest is a pending friend request stored on the recipient's record.
type IncomingRequest struct {
	From      string
	CreatedAt time.Time
}

// SentRequest is the reverse-index view of a pending request: outgoing
// requests are not stored on the sender's record and must be discovered by
// scanning every recipient.
type SentRequest struct {
	To        string
	CreatedAt time.Time
}

// Record is the per-user projection of the relationship graph: a set of
// friend ids plus the incoming requests this user has received. The two
// records of a pair are stored independently; this engine keeps them
// convergent through idempotent single-record writes.
type Record struct {
	ID       string
	Friends  []string
	Requests []IncomingRequest
}

// HasFriend reports whether id is present in the record's friends set.
func (r Record) HasFriend(id string) bool {
	for _, f := range r.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// HasRequestFrom reports whether a pending request from the given sender exists.
func (r Record) HasRequestFrom(sender string) bool {
	for _, req := range r.Requests {
		if req.From == sender {
			return true
		}
	}
	return false
}
