package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shorebreak/backend/internal/logging"
	"github.com/shorebreak/backend/internal/models"
	"github.com/shorebreak/backend/internal/repositories"
)

const minPasswordLength = 8

// AuthHandler owns account lifecycle and credential endpoints.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
	Cleanup  CleanupQueue
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

type signUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
	UserID           string    `json:"userId"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "signup") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Username == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "username is required"})
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid email address"})
		return
	}
	if len(req.Password) < minPasswordLength {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logging.FromContext(ctx).Error("hash password", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "username or email already in use"})
			return
		}
		logging.FromContext(ctx).Error("create user", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("issue session", "user_id", user.ID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "account created but login failed"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, tokenPayload(user.ID, tokens))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "login") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		logging.FromContext(ctx).Error("find user by email", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to log in"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("issue session", "user_id", user.ID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to log in"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, tokenPayload(user.ID, tokens))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "refreshToken is required"})
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired refresh token"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, tokenResponse{
		AccessToken:      tokens.AccessToken,
		AccessExpiresAt:  tokens.AccessExpiresAt,
		RefreshToken:     tokens.RefreshToken,
		RefreshExpiresAt: tokens.RefreshExpiresAt,
	})
}

// DeleteAccount removes the caller's record and schedules the relationship
// cleanup sweep. The account row is gone once this returns; references to
// the id elsewhere in the graph are scrubbed asynchronously.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	var req deleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user, err := h.Users.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "account not found"})
			return
		}
		logging.FromContext(ctx).Error("load account", "user_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to delete account"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "password confirmation failed"})
		return
	}

	if err := h.Users.Delete(ctx, callerID); err != nil {
		logging.FromContext(ctx).Error("delete account", "user_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to delete account"})
		return
	}

	if err := h.Sessions.RevokeUser(ctx, callerID); err != nil {
		logging.FromContext(ctx).Warn("revoke sessions after deletion", "user_id", callerID, "error", err)
	}

	if h.Cleanup != nil {
		if err := h.Cleanup.Enqueue(ctx, callerID); err != nil {
			logging.FromContext(ctx).Error("enqueue relationship cleanup", "user_id", callerID, "error", err)
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "account deleted"})
}

func (h *AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func tokenPayload(userID string, tokens models.SessionTokens) tokenResponse {
	return tokenResponse{
		AccessToken:      tokens.AccessToken,
		AccessExpiresAt:  tokens.AccessExpiresAt,
		RefreshToken:     tokens.RefreshToken,
		RefreshExpiresAt: tokens.RefreshExpiresAt,
		UserID:           userID,
	}
}
