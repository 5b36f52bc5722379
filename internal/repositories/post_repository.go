package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shorebreak/backend/internal/db"
	"github.com/shorebreak/backend/internal/models"
)

// PostRepository defines data access for forum posts and comments.
type PostRepository interface {
	CreatePost(ctx context.Context, post models.Post) error
	DeletePost(ctx context.Context, postID, authorID string) error
	ListFeed(ctx context.Context, authorIDs []string, limit, offset int) ([]models.Post, error)
	CreateComment(ctx context.Context, comment models.Comment) error
	ListComments(ctx context.Context, postID string, limit, offset int) ([]models.Comment, error)
}

// PostgresPostRepository provides PostgreSQL-backed persistence for posts.
type PostgresPostRepository struct {
	pool db.Pool
}

// NewPostgresPostRepository constructs a post repository backed by PostgreSQL.
func NewPostgresPostRepository(pool db.Pool) *PostgresPostRepository {
	return &PostgresPostRepository{pool: pool}
}

// CreatePost stores a new post.
func (r *PostgresPostRepository) CreatePost(ctx context.Context, post models.Post) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO posts (id, author_id, title, body, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, post.ID, post.AuthorID, post.Title, post.Body, post.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// DeletePost removes a post, but only for its author.
func (r *PostgresPostRepository) DeletePost(ctx context.Context, postID, authorID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM posts WHERE id = $1 AND author_id = $2`, postID, authorID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListFeed returns a reverse chronological page of posts by the given authors.
func (r *PostgresPostRepository) ListFeed(ctx context.Context, authorIDs []string, limit, offset int) ([]models.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, author_id, title, body, created_at
        FROM posts
        WHERE author_id = ANY($1)
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `, authorIDs, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query post feed: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.AuthorID, &post.Title, &post.Body, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post feed: %w", err)
	}

	return posts, nil
}

// CreateComment stores a new comment on a post.
func (r *PostgresPostRepository) CreateComment(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, post_id, author_id, body, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, comment.ID, comment.PostID, comment.AuthorID, comment.Body, comment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

// ListComments returns a chronological page of comments for a post.
func (r *PostgresPostRepository) ListComments(ctx context.Context, postID string, limit, offset int) ([]models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, post_id, author_id, body, created_at
        FROM comments
        WHERE post_id = $1
        ORDER BY created_at
        LIMIT $2 OFFSET $3
    `, postID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.AuthorID, &comment.Body, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

var _ PostRepository = (*PostgresPostRepository)(nil)
