package handlers

import "net/http"

// HealthHandler reports process liveness.
type HealthHandler struct{}

func (h HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
