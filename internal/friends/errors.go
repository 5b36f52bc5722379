package friends

import "errors"

var (
	// ErrUserNotFound indicates a party of the transition does not resolve to a record.
	ErrUserNotFound = errors.New("user record not found")
	// ErrSelfTarget indicates a transition was requested against the caller's own id.
	ErrSelfTarget = errors.New("cannot target own account")
	// ErrAlreadyFriends indicates the edge already exists.
	ErrAlreadyFriends = errors.New("already friends")
	// ErrDuplicateRequest indicates an identical pending request already exists.
	ErrDuplicateRequest = errors.New("request already pending")
	// ErrReverseRequestExists indicates the target already sent the caller a request;
	// the caller should accept it instead of sending their own.
	ErrReverseRequestExists = errors.New("reverse request pending, accept it instead")
	// ErrRequestNotFound indicates the referenced pending request does not exist.
	ErrRequestNotFound = errors.New("friend request not found")
	// ErrNotFriends indicates a removal was attempted on a non-existent edge.
	ErrNotFriends = errors.New("not friends")
	// ErrForbidden indicates the visibility rule denied a friends listing.
	ErrForbidden = errors.New("friends list not visible to requester")
	// ErrPartialWrite indicates one side of a two-sided mutation failed. The
	// relationship is left indeterminate; the operation is safe to retry because
	// every write is idempotent.
	ErrPartialWrite = errors.New("partial write, relationship indeterminate")
)
