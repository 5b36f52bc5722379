package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shorebreak/backend/internal/logging"
	"github.com/shorebreak/backend/internal/posts"
	"github.com/shorebreak/backend/internal/repositories"
)

// PostHandler provides endpoints for forum posts and comments.
type PostHandler struct {
	Posts   PostService
	Limiter RateLimiter
}

type createPostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type createCommentRequest struct {
	Body string `json:"body"`
}

// Create handles POST /api/v1/posts.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	if !allowRequest(h.Limiter, r, "posts") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	post, err := h.Posts.CreatePost(ctx, callerID, req.Title, req.Body)
	if err != nil {
		if errors.Is(err, posts.ErrEmptyContent) {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "title and body are required"})
			return
		}
		logging.FromContext(ctx).Error("create post", "author_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create post"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, post)
}

// Delete handles DELETE /api/v1/posts/{id}.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	postID := strings.TrimSpace(r.PathValue("id"))
	if postID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "post id is required"})
		return
	}

	if err := h.Posts.DeletePost(ctx, callerID, postID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
			return
		}
		logging.FromContext(ctx).Error("delete post", "post_id", postID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to delete post"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "post deleted"})
}

// Feed handles GET /api/v1/posts/feed.
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	feed, err := h.Posts.Feed(ctx, callerID, limit, offset)
	if err != nil {
		logging.FromContext(ctx).Error("load feed", "caller_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load feed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"posts": feed})
}

// CreateComment handles POST /api/v1/posts/{id}/comments.
func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	postID := strings.TrimSpace(r.PathValue("id"))
	if postID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "post id is required"})
		return
	}

	if !allowRequest(h.Limiter, r, "posts") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	comment, err := h.Posts.AddComment(ctx, callerID, postID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, posts.ErrEmptyContent):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "comment body is required"})
		case errors.Is(err, repositories.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "post not found"})
		default:
			logging.FromContext(ctx).Error("create comment", "post_id", postID, "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create comment"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, comment)
}

// ListComments handles GET /api/v1/posts/{id}/comments.
func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	postID := strings.TrimSpace(r.PathValue("id"))
	if postID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "post id is required"})
		return
	}

	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	comments, err := h.Posts.Comments(ctx, postID, limit, offset)
	if err != nil {
		logging.FromContext(ctx).Error("list comments", "post_id", postID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list comments"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"comments": comments})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
