package handlers

import "net/http"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users     UserStore
	Sessions  SessionManager
	Friends   RelationshipService
	Queries   RelationshipQueries
	Summaries SummaryProvider
	Posts     PostService
	Avatars   AvatarStorage
	Cleanup   CleanupQueue
	Limiter   RateLimiter
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := &AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Cleanup: deps.Cleanup, Limiter: deps.Limiter}
	friends := &FriendHandler{Relationships: deps.Friends, Queries: deps.Queries, Summaries: deps.Summaries, Limiter: deps.Limiter}
	posts := &PostHandler{Posts: deps.Posts, Limiter: deps.Limiter}
	profile := &ProfileHandler{Users: deps.Users, Avatars: deps.Avatars}

	authed := RequireAuth(deps.Sessions)

	mux.HandleFunc("GET /healthz", health.Check)

	mux.HandleFunc("POST /api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("POST /api/v1/auth/login", auth.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", auth.Refresh)
	mux.Handle("POST /api/v1/account/delete", authed(http.HandlerFunc(auth.DeleteAccount)))

	mux.Handle("POST /api/v1/friends/requests", authed(http.HandlerFunc(friends.Send)))
	mux.Handle("POST /api/v1/friends/requests/accept", authed(http.HandlerFunc(friends.Accept)))
	mux.Handle("POST /api/v1/friends/requests/reject", authed(http.HandlerFunc(friends.Reject)))
	mux.Handle("POST /api/v1/friends/requests/cancel", authed(http.HandlerFunc(friends.Cancel)))
	mux.Handle("POST /api/v1/friends/remove", authed(http.HandlerFunc(friends.Remove)))
	mux.Handle("GET /api/v1/friends", authed(http.HandlerFunc(friends.List)))
	mux.Handle("GET /api/v1/friends/status", authed(http.HandlerFunc(friends.Status)))
	mux.Handle("GET /api/v1/friends/requests/received", authed(http.HandlerFunc(friends.Received)))
	mux.Handle("GET /api/v1/friends/requests/sent", authed(http.HandlerFunc(friends.Sent)))

	mux.Handle("POST /api/v1/posts", authed(http.HandlerFunc(posts.Create)))
	mux.Handle("DELETE /api/v1/posts/{id}", authed(http.HandlerFunc(posts.Delete)))
	mux.Handle("GET /api/v1/posts/feed", authed(http.HandlerFunc(posts.Feed)))
	mux.Handle("POST /api/v1/posts/{id}/comments", authed(http.HandlerFunc(posts.CreateComment)))
	mux.Handle("GET /api/v1/posts/{id}/comments", authed(http.HandlerFunc(posts.ListComments)))

	mux.Handle("GET /api/v1/users/me", authed(http.HandlerFunc(profile.Me)))
	mux.Handle("POST /api/v1/users/me/avatar", authed(http.HandlerFunc(profile.UploadAvatar)))
}
