package handlers

import (
	"context"
	"io"

	"github.com/shorebreak/backend/internal/friends"
	"github.com/shorebreak/backend/internal/models"
)

// UserStore captures the persistence operations required by the account handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id string) error
}

// SessionManager issues, refreshes, and resolves authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Authenticate(ctx context.Context, accessToken string) (string, error)
	RevokeUser(ctx context.Context, userID string) error
}

// RelationshipService captures the mutation surface of the friends engine.
type RelationshipService interface {
	SendRequest(ctx context.Context, callerID, targetID string) error
	AcceptRequest(ctx context.Context, callerID, requesterID string) error
	RejectRequest(ctx context.Context, callerID, requesterID string) error
	CancelRequest(ctx context.Context, callerID, targetID string) error
	RemoveFriend(ctx context.Context, callerID, friendID string) error
}

// RelationshipQueries captures the read-only projections of the friends engine.
type RelationshipQueries interface {
	Status(ctx context.Context, selfID, otherID string) (friends.Status, error)
	Friends(ctx context.Context, requesterID, ownerID string) ([]string, error)
	Received(ctx context.Context, ownerID string) ([]friends.IncomingRequest, error)
	Sent(ctx context.Context, ownerID string) ([]friends.SentRequest, error)
}

// SummaryProvider resolves display fields for listed user ids.
type SummaryProvider interface {
	Summaries(ctx context.Context, ids []string) ([]models.UserSummary, error)
}

// PostService captures post and comment workflows.
type PostService interface {
	CreatePost(ctx context.Context, authorID, title, body string) (models.Post, error)
	DeletePost(ctx context.Context, callerID, postID string) error
	Feed(ctx context.Context, callerID string, limit, offset int) ([]models.Post, error)
	AddComment(ctx context.Context, authorID, postID, body string) (models.Comment, error)
	Comments(ctx context.Context, postID string, limit, offset int) ([]models.Comment, error)
}

// AvatarStorage persists uploaded avatar images.
type AvatarStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// CleanupQueue schedules the relationship purge after an account deletion.
type CleanupQueue interface {
	Enqueue(ctx context.Context, userID string) error
}
