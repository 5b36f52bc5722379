package friends

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shorebreak/backend/internal/logging"
)

// Service orchestrates relationship transitions: it reads both parties'
// records, asks the decision logic which writes are required, and applies
// them through the graph store. The two sides of an edge commit
// independently, so a brief one-sided state is observable between writes;
// readers tolerate it via the bidirectional visibility rule in Queries.
type Service struct {
	store   GraphStore
	logger  *slog.Logger
	NowFunc func() time.Time
}

// NewService constructs a relationship service on top of the provided store.
func NewService(store GraphStore, logger *slog.Logger) *Service {
	if store == nil {
		panic("friends: graph store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// SendRequest records a pending request from caller to target.
func (s *Service) SendRequest(ctx context.Context, callerID, targetID string) error {
	return s.transition(ctx, TransitionSend, callerID, targetID)
}

// AcceptRequest turns a pending request from requester into a friendship.
func (s *Service) AcceptRequest(ctx context.Context, callerID, requesterID string) error {
	return s.transition(ctx, TransitionAccept, callerID, requesterID)
}

// RejectRequest discards a pending request the caller received.
func (s *Service) RejectRequest(ctx context.Context, callerID, requesterID string) error {
	return s.transition(ctx, TransitionReject, callerID, requesterID)
}

// CancelRequest withdraws a pending request the caller previously sent.
func (s *Service) CancelRequest(ctx context.Context, callerID, targetID string) error {
	return s.transition(ctx, TransitionCancel, callerID, targetID)
}

// RemoveFriend severs an existing friendship from either side.
func (s *Service) RemoveFriend(ctx context.Context, callerID, friendID string) error {
	return s.transition(ctx, TransitionRemove, callerID, friendID)
}

func (s *Service) transition(ctx context.Context, t Transition, callerID, otherID string) error {
	ctx, span := logging.StartSpan(ctx, "friends."+string(t))
	defer span.End()

	self, other, err := s.load(ctx, callerID, otherID)
	if err != nil {
		return err
	}

	writes, err := Decide(t, self, other)
	if err != nil {
		return err
	}

	return s.apply(ctx, writes)
}

func (s *Service) load(ctx context.Context, callerID, otherID string) (Record, Record, error) {
	self, err := s.store.Record(ctx, callerID)
	if err != nil {
		return Record{}, Record{}, fmt.Errorf("load caller record: %w", err)
	}

	if otherID == callerID {
		// Decide rejects self-targeting; no second read needed.
		return self, self, nil
	}

	other, err := s.store.Record(ctx, otherID)
	if err != nil {
		return Record{}, Record{}, fmt.Errorf("load target record: %w", err)
	}

	return self, other, nil
}

// apply issues the planned writes concurrently, one per affected record
// mutation. There is no cross-record rollback: if some writes land and
// others fail, the relationship is reported indeterminate via
// ErrPartialWrite and the caller retries, relying on every primitive being
// idempotent.
func (s *Service) apply(ctx context.Context, writes []Write) error {
	if len(writes) == 1 {
		return s.applyOne(ctx, writes[0])
	}

	errs := make([]error, len(writes))
	var wg sync.WaitGroup
	wg.Add(len(writes))
	for i, w := range writes {
		go func(i int, w Write) {
			defer wg.Done()
			errs[i] = s.applyOne(ctx, w)
		}(i, w)
	}
	wg.Wait()

	var failed int
	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if first == nil {
			first = err
		}
		s.logger.Error("relationship write failed",
			"op", string(writes[i].Op),
			"userId", writes[i].UserID,
			"other", writes[i].Other,
			"error", err,
		)
	}

	switch {
	case failed == 0:
		return nil
	case failed == len(writes):
		return first
	default:
		return fmt.Errorf("%w: %w", ErrPartialWrite, first)
	}
}

func (s *Service) applyOne(ctx context.Context, w Write) error {
	switch w.Op {
	case OpAddFriend:
		return s.store.AddFriend(ctx, w.UserID, w.Other)
	case OpRemoveFriend:
		return s.store.RemoveFriend(ctx, w.UserID, w.Other)
	case OpAddRequest:
		return s.store.AddRequest(ctx, w.UserID, w.Other, s.now())
	case OpRemoveRequest:
		return s.store.RemoveRequest(ctx, w.UserID, w.Other)
	default:
		return fmt.Errorf("unknown write op %q", w.Op)
	}
}

// Repair re-applies the missing half of a one-sided friendship edge. It is
// the recovery path after a partial accept: the surviving side is treated as
// authoritative and the absent side is completed with the same idempotent
// insert, so repeated repairs converge. A partially removed edge is instead
// recovered by retrying the removal from the side that still holds it.
func (s *Service) Repair(ctx context.Context, aID, bID string) error {
	if aID == bID {
		return ErrSelfTarget
	}

	a, b, err := s.load(ctx, aID, bID)
	if err != nil {
		return err
	}

	aHasB := a.HasFriend(bID)
	bHasA := b.HasFriend(aID)
	if aHasB == bHasA {
		return nil
	}

	var w Write
	if aHasB {
		w = Write{Op: OpAddFriend, UserID: bID, Other: aID}
	} else {
		w = Write{Op: OpAddFriend, UserID: aID, Other: bID}
	}

	s.logger.Info("repairing one-sided friendship edge", "userId", w.UserID, "other", w.Other)
	return s.applyOne(ctx, w)
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
