package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/shorebreak/backend/internal/logging"
	"github.com/shorebreak/backend/internal/repositories"
)

const maxAvatarBytes = 5 << 20

// ProfileHandler serves the caller's own account details.
type ProfileHandler struct {
	Users   UserStore
	Avatars AvatarStorage
}

type profileResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Me handles GET /api/v1/users/me.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	user, err := h.Users.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "account not found"})
			return
		}
		logging.FromContext(ctx).Error("load profile", "user_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, profileResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
	})
}

// UploadAvatar handles POST /api/v1/users/me/avatar. The request body is a
// multipart form with an "avatar" file field.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := CallerID(ctx)

	if h.Avatars == nil {
		respondJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{"error": "avatar storage is not configured"})
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid multipart request"})
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "avatar file field is required"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "unsupported image type"})
		return
	}

	key := fmt.Sprintf("avatars/%s/%s%s", callerID, uuid.NewString(), ext)
	location, err := h.Avatars.Save(ctx, key, file)
	if err != nil {
		logging.FromContext(ctx).Error("store avatar", "user_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to store avatar"})
		return
	}

	user, err := h.Users.FindByID(ctx, callerID)
	if err != nil {
		logging.FromContext(ctx).Error("load profile for avatar update", "user_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		return
	}

	user.AvatarURL = location
	if err := h.Users.Update(ctx, user); err != nil {
		logging.FromContext(ctx).Error("update avatar url", "user_id", callerID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"avatarUrl": location})
}
