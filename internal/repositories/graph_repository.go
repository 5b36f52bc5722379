package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shorebreak/backend/internal/db"
	"github.com/shorebreak/backend/internal/friends"
	"github.com/shorebreak/backend/internal/models"
)

// PostgresGraphStore implements friends.GraphStore against the denormalized
// relationship columns on the users table. Every primitive is a single
// conditional UPDATE: the "only if absent / only if present" guard lives in
// the statement itself, so the mutation is atomic per record and idempotent
// under concurrent duplicates. No statement ever touches two rows of a pair,
// and no transaction spans records.
type PostgresGraphStore struct {
	pool db.Pool
}

// NewPostgresGraphStore constructs the pgx-backed relationship store.
func NewPostgresGraphStore(pool db.Pool) *PostgresGraphStore {
	return &PostgresGraphStore{pool: pool}
}

// Record loads one user's graph projection.
func (s *PostgresGraphStore) Record(ctx context.Context, id string) (friends.Record, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return friends.Record{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT id, friends, friend_requests FROM users WHERE id = $1`, id)

	var (
		rec      friends.Record
		requests []byte
	)
	if err := row.Scan(&rec.ID, &rec.Friends, &requests); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return friends.Record{}, friends.ErrUserNotFound
		}
		return friends.Record{}, fmt.Errorf("select graph record: %w", err)
	}

	if len(requests) > 0 {
		var entries []models.FriendRequestEntry
		if err := json.Unmarshal(requests, &entries); err != nil {
			return friends.Record{}, fmt.Errorf("decode friend requests: %w", err)
		}
		for _, e := range entries {
			rec.Requests = append(rec.Requests, friends.IncomingRequest{From: e.From, CreatedAt: e.CreatedAt})
		}
	}

	return rec, nil
}

// AddFriend appends friendID to the friends set only when it is absent. A
// zero-row result means the value was already present (or the row is gone);
// both are no-ops by contract.
func (s *PostgresGraphStore) AddFriend(ctx context.Context, userID, friendID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        UPDATE users
        SET friends = array_append(friends, $2), updated_at = now()
        WHERE id = $1 AND id <> $2 AND NOT ($2 = ANY(friends))
    `, userID, friendID)
	if err != nil {
		return fmt.Errorf("add friend: %w", err)
	}

	return nil
}

// RemoveFriend removes friendID from the friends set if present.
func (s *PostgresGraphStore) RemoveFriend(ctx context.Context, userID, friendID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        UPDATE users
        SET friends = array_remove(friends, $2), updated_at = now()
        WHERE id = $1 AND $2 = ANY(friends)
    `, userID, friendID)
	if err != nil {
		return fmt.Errorf("remove friend: %w", err)
	}

	return nil
}

// AddRequest appends a pending request entry unless one from the same sender
// already exists. Jsonb containment supplies the per-sender uniqueness
// guard, which is what keeps two racing sends down to one surviving entry.
func (s *PostgresGraphStore) AddRequest(ctx context.Context, userID, from string, createdAt time.Time) error {
	entry, err := json.Marshal([]models.FriendRequestEntry{{From: from, CreatedAt: createdAt.UTC()}})
	if err != nil {
		return fmt.Errorf("encode friend request: %w", err)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        UPDATE users
        SET friend_requests = friend_requests || $2::JSONB, updated_at = now()
        WHERE id = $1 AND id <> $3
          AND NOT (friend_requests @> jsonb_build_array(jsonb_build_object('from', $3::TEXT)))
    `, userID, entry, from)
	if err != nil {
		return fmt.Errorf("add friend request: %w", err)
	}

	return nil
}

// RemoveRequest filters out any entry from the given sender.
func (s *PostgresGraphStore) RemoveRequest(ctx context.Context, userID, from string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        UPDATE users
        SET friend_requests = COALESCE(
                (SELECT jsonb_agg(e) FROM jsonb_array_elements(friend_requests) AS e WHERE e->>'from' <> $2),
                '[]'::JSONB
            ),
            updated_at = now()
        WHERE id = $1
          AND friend_requests @> jsonb_build_array(jsonb_build_object('from', $2::TEXT))
    `, userID, from)
	if err != nil {
		return fmt.Errorf("remove friend request: %w", err)
	}

	return nil
}

// SentRequests is the reverse-index scan: outgoing requests live only on the
// recipients' records, so they are discovered by unnesting every record's
// pending list.
func (s *PostgresGraphStore) SentRequests(ctx context.Context, from string) ([]friends.SentRequest, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, e->>'createdAt'
        FROM users AS u, jsonb_array_elements(u.friend_requests) AS e
        WHERE e->>'from' = $1
        ORDER BY e->>'createdAt', u.id
    `, from)
	if err != nil {
		return nil, fmt.Errorf("query sent requests: %w", err)
	}
	defer rows.Close()

	var sent []friends.SentRequest
	for rows.Next() {
		var (
			req     friends.SentRequest
			created string
		)
		if err := rows.Scan(&req.To, &created); err != nil {
			return nil, fmt.Errorf("scan sent request: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse sent request timestamp: %w", err)
		}
		req.CreatedAt = ts.UTC()

		sent = append(sent, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sent requests: %w", err)
	}

	return sent, nil
}

// Purge scrubs the deleted id from every record's friends set and pending
// requests. Both sweeps are idempotent, so the account-deletion flow may
// invoke this before or after dropping the record itself, and retry freely.
func (s *PostgresGraphStore) Purge(ctx context.Context, userID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        UPDATE users
        SET friends = array_remove(friends, $1), updated_at = now()
        WHERE $1 = ANY(friends)
    `, userID); err != nil {
		return fmt.Errorf("purge friends entries: %w", err)
	}

	if _, err := conn.Exec(ctx, `
        UPDATE users
        SET friend_requests = COALESCE(
                (SELECT jsonb_agg(e) FROM jsonb_array_elements(friend_requests) AS e WHERE e->>'from' <> $1),
                '[]'::JSONB
            ),
            updated_at = now()
        WHERE friend_requests @> jsonb_build_array(jsonb_build_object('from', $1::TEXT))
    `, userID); err != nil {
		return fmt.Errorf("purge request entries: %w", err)
	}

	return nil
}

var _ friends.GraphStore = (*PostgresGraphStore)(nil)
