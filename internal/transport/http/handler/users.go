package handler

import (
	"net/http"

	"github.com/geeta-saathi/backend/internal/transport/http/middleware"
)

type meEnvelope struct {
	User struct {
		ID    string `json:"id"`
		Phone string `json:"phone"`
	} `json:"user"`
}

// Me returns the identity carried by the caller's bearer token.
func Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var env meEnvelope
	env.User.ID = claims.UserID
	env.User.Phone = claims.Subject
	writeJSON(w, http.StatusOK, env)
}

// AIChat is a placeholder until the guidance backend exists.
func AIChat(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotImplemented, "AI chat is not available yet")
}
