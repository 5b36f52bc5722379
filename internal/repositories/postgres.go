package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shorebreak/backend/internal/db"
	"github.com/shorebreak/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, avatar_url, friends, friend_requests, created_at, updated_at`

// Create persists a new user record with empty relationship projections.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, password_hash, avatar_url, friends, friend_requests, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, ARRAY[]::TEXT[], '[]'::JSONB, $6, $7)
    `, user.ID, user.Username, user.Email, user.Password, user.AvatarURL, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, query, arg)

	var (
		user     models.User
		requests []byte
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.AvatarURL, &user.Friends, &requests, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	if len(requests) > 0 {
		if err := json.Unmarshal(requests, &user.FriendRequests); err != nil {
			return models.User{}, fmt.Errorf("decode friend requests: %w", err)
		}
	}

	return user, nil
}

// Update modifies the account fields of an existing user. The relationship
// projections are deliberately untouched: only the graph store writes those.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET username = $2, email = $3, password_hash = $4, avatar_url = $5, updated_at = $6
        WHERE id = $1
    `, user.ID, user.Username, user.Email, user.Password, user.AvatarURL, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the user record itself. Scrubbing the deleted id from every
// other record's relationship projections is the cleanup sweeper's job and
// can run before or after this in any order.
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Summaries resolves display fields for the provided user ids. Ids that no
// longer resolve are silently skipped so listings tolerate the engine's
// bounded inconsistency window around deletions.
func (r *PostgresUserRepository) Summaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, username, avatar_url
        FROM users
        WHERE id = ANY($1)
        ORDER BY username
    `, ids)
	if err != nil {
		return nil, fmt.Errorf("query user summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.UserSummary
	for rows.Next() {
		var s models.UserSummary
		if err := rows.Scan(&s.ID, &s.Username, &s.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan user summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user summaries: %w", err)
	}

	return summaries, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
