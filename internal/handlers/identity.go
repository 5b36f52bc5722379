package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shorebreak/backend/internal/logging"
)

type ctxKey string

const callerIDKey ctxKey = "callerID"

// CallerID returns the authenticated user id placed on the context by
// RequireAuth, or the empty string when the request is unauthenticated.
func CallerID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(callerIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCallerID stores an authenticated user id on the context. Exposed for tests.
func WithCallerID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerIDKey, userID)
}

// RequireAuth resolves the bearer token to a caller identity and rejects
// requests that do not carry a valid access token.
func RequireAuth(sessions SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if sessions == nil {
				logging.FromContext(ctx).Error("session manager unavailable")
				respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
				return
			}

			token := bearerToken(r)
			if token == "" {
				respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
				return
			}

			userID, err := sessions.Authenticate(ctx, token)
			if err != nil {
				logging.FromContext(ctx).Warn("token rejected", "error", err)
				respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCallerID(ctx, userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
