package friends

import (
	"context"
	"sort"
	"sync"
	"time"
)

// NewMemoryGraphStore returns a GraphStore backed by an in-memory map.
// It mirrors the persistent store's conditional semantics exactly, which
// makes it suitable for unit tests and local development.
func NewMemoryGraphStore() *MemoryGraphStore {
	return &MemoryGraphStore{records: make(map[string]*Record)}
}

// MemoryGraphStore implements GraphStore for tests and local development.
type MemoryGraphStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// Put registers (or replaces) a user record.
func (s *MemoryGraphStore) Put(rec Record) {
	s.mu.Lock()
	copied := rec
	copied.Friends = append([]string(nil), rec.Friends...)
	copied.Requests = append([]IncomingRequest(nil), rec.Requests...)
	s.records[rec.ID] = &copied
	s.mu.Unlock()
}

// Record returns a copy of the stored record.
func (s *MemoryGraphStore) Record(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrUserNotFound
	}

	out := *rec
	out.Friends = append([]string(nil), rec.Friends...)
	out.Requests = append([]IncomingRequest(nil), rec.Requests...)
	return out, nil
}

// AddFriend inserts friendID only if absent; no-op otherwise.
func (s *MemoryGraphStore) AddFriend(_ context.Context, userID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok || userID == friendID {
		return nil
	}
	for _, f := range rec.Friends {
		if f == friendID {
			return nil
		}
	}
	rec.Friends = append(rec.Friends, friendID)
	return nil
}

// RemoveFriend removes friendID if present; no-op otherwise.
func (s *MemoryGraphStore) RemoveFriend(_ context.Context, userID, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil
	}
	kept := rec.Friends[:0]
	for _, f := range rec.Friends {
		if f != friendID {
			kept = append(kept, f)
		}
	}
	rec.Friends = kept
	return nil
}

// AddRequest appends a pending request only if no entry from the sender exists.
func (s *MemoryGraphStore) AddRequest(_ context.Context, userID, from string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok || userID == from {
		return nil
	}
	for _, req := range rec.Requests {
		if req.From == from {
			return nil
		}
	}
	rec.Requests = append(rec.Requests, IncomingRequest{From: from, CreatedAt: createdAt})
	return nil
}

// RemoveRequest removes any pending request from the sender; no-op otherwise.
func (s *MemoryGraphStore) RemoveRequest(_ context.Context, userID, from string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil
	}
	kept := rec.Requests[:0]
	for _, req := range rec.Requests {
		if req.From != from {
			kept = append(kept, req)
		}
	}
	rec.Requests = kept
	return nil
}

// SentRequests walks every record looking for requests sent by the user.
func (s *MemoryGraphStore) SentRequests(_ context.Context, from string) ([]SentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []SentRequest
	for id, rec := range s.records {
		for _, req := range rec.Requests {
			if req.From == from {
				out = append(out, SentRequest{To: id, CreatedAt: req.CreatedAt})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].To < out[j].To
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Purge scrubs the user id from every other record.
func (s *MemoryGraphStore) Purge(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		kept := rec.Friends[:0]
		for _, f := range rec.Friends {
			if f != userID {
				kept = append(kept, f)
			}
		}
		rec.Friends = kept

		keptReqs := rec.Requests[:0]
		for _, req := range rec.Requests {
			if req.From != userID {
				keptReqs = append(keptReqs, req)
			}
		}
		rec.Requests = keptReqs
	}
	return nil
}

var _ GraphStore = (*MemoryGraphStore)(nil)
