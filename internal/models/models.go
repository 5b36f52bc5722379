package models

import "time"

// User represents an account within the Shorebreak community. The Friends
// and FriendRequests fields are the denormalized relationship projections
// owned by the friends engine; no other code writes them.
type User struct {
	ID        string
	Username  string
	Email     string
	Password  string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time

	Friends        []string
	FriendRequests []FriendRequestEntry
}

// FriendRequestEntry is one incoming pending request stored on the
// recipient's record.
type FriendRequestEntry struct {
	From      string    `json:"from"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserSummary carries the display fields exposed in friend and request
// listings.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Post is a forum post authored by a user.
type Post struct {
	ID        string
	AuthorID  string
	Title     string
	Body      string
	CreatedAt time.Time
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
