package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shorebreak/backend/internal/friends"
	"github.com/shorebreak/backend/internal/logging"
	"github.com/shorebreak/backend/internal/models"
)

// FriendHandler exposes the relationship engine over HTTP. Every endpoint
// acts on behalf of the authenticated caller; the other party is named in
// the request body or query string.
type FriendHandler struct {
	Relationships RelationshipService
	Queries       RelationshipQueries
	Summaries     SummaryProvider
	Limiter       RateLimiter
}

type friendTargetRequest struct {
	TargetID string `json:"targetId"`
}

type friendRequesterRequest struct {
	RequesterID string `json:"requesterId"`
}

type friendRemoveRequest struct {
	FriendID string `json:"friendId"`
}

type receivedRequestEntry struct {
	From      models.UserSummary `json:"from"`
	CreatedAt time.Time          `json:"createdAt"`
}

type sentRequestEntry struct {
	To        models.UserSummary `json:"to"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Send creates a pending request from the caller to the target.
func (h *FriendHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(callerID, otherID string) error {
		return h.Relationships.SendRequest(r.Context(), callerID, otherID)
	}, decodeTargetID, "friend request sent")
}

// Accept promotes a pending request from the named requester into friendship.
func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(callerID, otherID string) error {
		return h.Relationships.AcceptRequest(r.Context(), callerID, otherID)
	}, decodeRequesterID, "friend request accepted")
}

// Reject removes a pending request from the named requester without
// creating an edge.
func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(callerID, otherID string) error {
		return h.Relationships.RejectRequest(r.Context(), callerID, otherID)
	}, decodeRequesterID, "friend request rejected")
}

// Cancel withdraws a pending request the caller previously sent.
func (h *FriendHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(callerID, otherID string) error {
		return h.Relationships.CancelRequest(r.Context(), callerID, otherID)
	}, decodeTargetID, "friend request cancelled")
}

// Remove dissolves an existing friendship.
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(callerID, otherID string) error {
		return h.Relationships.RemoveFriend(r.Context(), callerID, otherID)
	}, decodeFriendID, "friend removed")
}

func (h *FriendHandler) mutate(w http.ResponseWriter, r *http.Request, apply func(callerID, otherID string) error, decode func(*http.Request) (string, error), okMessage string) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	if !allowRequest(h.Limiter, r, "friends") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	otherID, err := decode(r)
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := apply(callerID, otherID); err != nil {
		h.respondMutationError(ctx, w, callerID, otherID, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": okMessage})
}

func (h *FriendHandler) respondMutationError(ctx context.Context, w http.ResponseWriter, callerID, otherID string, err error) {
	if errors.Is(err, friends.ErrPartialWrite) {
		logging.FromContext(ctx).Error("relationship write left records diverged",
			"caller_id", callerID, "other_id", otherID, "error", err)
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]any{
			"error":     "relationship update incomplete, retry the operation",
			"retryable": true,
		})
		return
	}

	status := relationshipErrorStatus(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(ctx).Error("relationship mutation failed",
			"caller_id", callerID, "other_id", otherID, "error", err)
		respondJSON(ctx, w, status, map[string]string{"error": "failed to update relationship"})
		return
	}

	respondJSON(ctx, w, status, map[string]string{"error": err.Error()})
}

// Status reports the relationship between the caller and another user.
func (h *FriendHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	otherID := strings.TrimSpace(r.URL.Query().Get("user"))
	if otherID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "user query parameter is required"})
		return
	}

	status, err := h.Queries.Status(ctx, callerID, otherID)
	if err != nil {
		if errors.Is(err, friends.ErrUserNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logging.FromContext(ctx).Error("resolve relationship status",
			"caller_id", callerID, "other_id", otherID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to resolve status"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"user": otherID, "status": string(status)})
}

// List returns the friends of the requested user. The owner's list is only
// visible to the owner and to users both sides agree are friends.
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	ownerID := strings.TrimSpace(r.URL.Query().Get("user"))
	if ownerID == "" {
		ownerID = callerID
	}

	ids, err := h.Queries.Friends(ctx, callerID, ownerID)
	if err != nil {
		switch {
		case errors.Is(err, friends.ErrUserNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
		case errors.Is(err, friends.ErrForbidden):
			respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "friends list is not visible"})
		default:
			logging.FromContext(ctx).Error("list friends", "owner_id", ownerID, "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list friends"})
		}
		return
	}

	summaries, err := h.Summaries.Summaries(ctx, ids)
	if err != nil {
		logging.FromContext(ctx).Error("resolve friend summaries", "owner_id", ownerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list friends"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": ownerID, "friends": summaries})
}

// Received lists pending requests awaiting the caller's decision.
func (h *FriendHandler) Received(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	requests, err := h.Queries.Received(ctx, callerID)
	if err != nil {
		if errors.Is(err, friends.ErrUserNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logging.FromContext(ctx).Error("list received requests", "caller_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list requests"})
		return
	}

	ids := make([]string, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.From)
	}
	byID, err := h.summariesByID(ctx, ids)
	if err != nil {
		logging.FromContext(ctx).Error("resolve requester summaries", "caller_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list requests"})
		return
	}

	entries := make([]receivedRequestEntry, 0, len(requests))
	for _, req := range requests {
		summary, ok := byID[req.From]
		if !ok {
			// Sender deleted after sending; the cleanup sweep will drop
			// the entry shortly. Hide it rather than render a ghost.
			continue
		}
		entries = append(entries, receivedRequestEntry{From: summary, CreatedAt: req.CreatedAt})
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"requests": entries})
}

// Sent lists the caller's pending outgoing requests.
func (h *FriendHandler) Sent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	requests, err := h.Queries.Sent(ctx, callerID)
	if err != nil {
		if errors.Is(err, friends.ErrUserNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		logging.FromContext(ctx).Error("list sent requests", "caller_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list requests"})
		return
	}

	ids := make([]string, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.To)
	}
	byID, err := h.summariesByID(ctx, ids)
	if err != nil {
		logging.FromContext(ctx).Error("resolve recipient summaries", "caller_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list requests"})
		return
	}

	entries := make([]sentRequestEntry, 0, len(requests))
	for _, req := range requests {
		summary, ok := byID[req.To]
		if !ok {
			continue
		}
		entries = append(entries, sentRequestEntry{To: summary, CreatedAt: req.CreatedAt})
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"requests": entries})
}

func (h *FriendHandler) summariesByID(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	if len(ids) == 0 {
		return map[string]models.UserSummary{}, nil
	}
	summaries, err := h.Summaries.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.UserSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}
	return byID, nil
}

func relationshipErrorStatus(err error) int {
	switch {
	case errors.Is(err, friends.ErrSelfTarget):
		return http.StatusBadRequest
	case errors.Is(err, friends.ErrUserNotFound),
		errors.Is(err, friends.ErrRequestNotFound),
		errors.Is(err, friends.ErrNotFriends):
		return http.StatusNotFound
	case errors.Is(err, friends.ErrAlreadyFriends),
		errors.Is(err, friends.ErrDuplicateRequest),
		errors.Is(err, friends.ErrReverseRequestExists):
		return http.StatusConflict
	case errors.Is(err, friends.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func decodeTargetID(r *http.Request) (string, error) {
	var req friendTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", errors.New("invalid request body")
	}
	id := strings.TrimSpace(req.TargetID)
	if id == "" {
		return "", errors.New("targetId is required")
	}
	return id, nil
}

func decodeRequesterID(r *http.Request) (string, error) {
	var req friendRequesterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", errors.New("invalid request body")
	}
	id := strings.TrimSpace(req.RequesterID)
	if id == "" {
		return "", errors.New("requesterId is required")
	}
	return id, nil
}

func decodeFriendID(r *http.Request) (string, error) {
	var req friendRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", errors.New("invalid request body")
	}
	id := strings.TrimSpace(req.FriendID)
	if id == "" {
		return "", errors.New("friendId is required")
	}
	return id, nil
}
