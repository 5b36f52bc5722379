package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/shorebreak/backend/internal/models"
	"github.com/shorebreak/backend/internal/repositories"
)

var (
	// ErrEmptyContent indicates the post or comment had no content left after sanitization.
	ErrEmptyContent = errors.New("content is empty")
)

const (
	maxTitleLen = 200
	maxBodyLen  = 10000

	defaultPageSize = 20
	maxPageSize     = 100
)

// FriendLister supplies the caller's friend ids for the feed. The caller is
// always allowed to list their own friends, so this never hits the
// visibility gate.
type FriendLister interface {
	Friends(ctx context.Context, requesterID, ownerID string) ([]string, error)
}

// Service implements post and comment workflows: user-supplied HTML is
// sanitized before it is stored, and the feed is scoped to the caller plus
// their friends.
type Service struct {
	repo    repositories.PostRepository
	graph   FriendLister
	title   *bluemonday.Policy
	body    *bluemonday.Policy
	NowFunc func() time.Time
}

// NewService constructs the post service.
func NewService(repo repositories.PostRepository, graph FriendLister) *Service {
	return &Service{
		repo:  repo,
		graph: graph,
		// Titles are plain text; bodies keep the usual user-generated-content tags.
		title: bluemonday.StrictPolicy(),
		body:  bluemonday.UGCPolicy(),
	}
}

// CreatePost sanitizes and stores a new post authored by the caller.
func (s *Service) CreatePost(ctx context.Context, authorID, title, body string) (models.Post, error) {
	title = strings.TrimSpace(s.title.Sanitize(title))
	body = strings.TrimSpace(s.body.Sanitize(body))
	if title == "" || body == "" {
		return models.Post{}, ErrEmptyContent
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	if len(body) > maxBodyLen {
		body = body[:maxBodyLen]
	}

	post := models.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Title:     title,
		Body:      body,
		CreatedAt: s.now(),
	}

	if err := s.repo.CreatePost(ctx, post); err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}

	return post, nil
}

// DeletePost removes one of the caller's own posts.
func (s *Service) DeletePost(ctx context.Context, callerID, postID string) error {
	return s.repo.DeletePost(ctx, postID, callerID)
}

// Feed returns a page of posts authored by the caller and their friends.
func (s *Service) Feed(ctx context.Context, callerID string, limit, offset int) ([]models.Post, error) {
	friendIDs, err := s.graph.Friends(ctx, callerID, callerID)
	if err != nil {
		return nil, fmt.Errorf("list friends for feed: %w", err)
	}

	authors := append([]string{callerID}, friendIDs...)
	return s.repo.ListFeed(ctx, authors, clampLimit(limit), clampOffset(offset))
}

// AddComment sanitizes and stores a comment on the given post.
func (s *Service) AddComment(ctx context.Context, authorID, postID, body string) (models.Comment, error) {
	body = strings.TrimSpace(s.body.Sanitize(body))
	if body == "" {
		return models.Comment{}, ErrEmptyContent
	}
	if len(body) > maxBodyLen {
		body = body[:maxBodyLen]
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: s.now(),
	}

	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	}

	return comment, nil
}

// Comments returns a page of comments for the given post.
func (s *Service) Comments(ctx context.Context, postID string, limit, offset int) ([]models.Comment, error) {
	return s.repo.ListComments(ctx, postID, clampLimit(limit), clampOffset(offset))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
