package friends

// Transition names an intended change to the relationship between the acting
// user and another user.
type Transition string

const (
	TransitionSend   Transition = "send"
	TransitionAccept Transition = "accept"
	TransitionReject Transition = "reject"
	TransitionCancel Transition = "cancel"
	TransitionRemove Transition = "remove"
)

// WriteOp identifies one of the store's conditional primitives.
type WriteOp string

const (
	OpAddFriend     WriteOp = "add_friend"
	OpRemoveFriend  WriteOp = "remove_friend"
	OpAddRequest    WriteOp = "add_request"
	OpRemoveRequest WriteOp = "remove_request"
)

// Write is one planned mutation against a single user record. UserID is the
// record the write targets; Other is the friend id or request sender involved.
type Write struct {
	Op     WriteOp
	UserID string
	Other  string
}

// Decide validates the transition against the current state of both records
// and returns the writes it requires. It performs no I/O: both records are
// read by the caller beforehand, and all rejections happen here, before any
// write is issued. The returned writes only ever reference the two records
// passed in.
func Decide(transition Transition, self, other Record) ([]Write, error) {
	if self.ID == other.ID {
		return nil, ErrSelfTarget
	}

	switch transition {
	case TransitionSend:
		return decideSend(self, other)
	case TransitionAccept:
		return decideAccept(self, other)
	case TransitionReject:
		if !self.HasRequestFrom(other.ID) {
			return nil, ErrRequestNotFound
		}
		return []Write{{Op: OpRemoveRequest, UserID: self.ID, Other: other.ID}}, nil
	case TransitionCancel:
		if !other.HasRequestFrom(self.ID) {
			return nil, ErrRequestNotFound
		}
		return []Write{{Op: OpRemoveRequest, UserID: other.ID, Other: self.ID}}, nil
	case TransitionRemove:
		if !self.HasFriend(other.ID) {
			return nil, ErrNotFriends
		}
		return []Write{
			{Op: OpRemoveFriend, UserID: self.ID, Other: other.ID},
			{Op: OpRemoveFriend, UserID: other.ID, Other: self.ID},
		}, nil
	default:
		return nil, ErrRequestNotFound
	}
}

func decideSend(self, other Record) ([]Write, error) {
	if self.HasFriend(other.ID) {
		return nil, ErrAlreadyFriends
	}
	if other.HasRequestFrom(self.ID) {
		return nil, ErrDuplicateRequest
	}
	// A reverse pending request is never auto-accepted: silently turning the
	// other party's request into a friendship would mutate a relationship
	// they did not ask for. The caller is told to accept instead.
	if self.HasRequestFrom(other.ID) {
		return nil, ErrReverseRequestExists
	}
	return []Write{{Op: OpAddRequest, UserID: other.ID, Other: self.ID}}, nil
}

func decideAccept(self, other Record) ([]Write, error) {
	if !self.HasRequestFrom(other.ID) {
		return nil, ErrRequestNotFound
	}
	if self.HasFriend(other.ID) {
		return nil, ErrAlreadyFriends
	}
	return []Write{
		{Op: OpAddFriend, UserID: self.ID, Other: other.ID},
		{Op: OpAddFriend, UserID: other.ID, Other: self.ID},
		{Op: OpRemoveRequest, UserID: self.ID, Other: other.ID},
	}, nil
}

// DeriveStatus computes the relationship state between self and other from
// their two records.
func DeriveStatus(self, other Record) Status {
	switch {
	case self.ID == other.ID:
		return StatusSelf
	case self.HasFriend(other.ID):
		return StatusFriends
	case other.HasRequestFrom(self.ID):
		return StatusPendingSent
	case self.HasRequestFrom(other.ID):
		return StatusPendingReceived
	default:
		return StatusNone
	}
}
