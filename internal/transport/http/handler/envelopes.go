package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geeta-saathi/backend/internal/domain"
	"github.com/geeta-saathi/backend/internal/transport/http/middleware"
)

// MessageEnvelope is the generic success response wrapper.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// SendCodeEnvelope acknowledges an issued code. DevCode is only set when the
// handshake exposes issued codes.
type SendCodeEnvelope struct {
	Message string `json:"message"`
	DevCode string `json:"devCode,omitempty"`
}

// LoginEnvelope wraps a successful verification.
type LoginEnvelope struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

// TokenEnvelope wraps refresh responses.
type TokenEnvelope struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	middleware.WriteError(w, r, status, msg)
}

// httpError maps domain sentinel errors to HTTP status codes. Unmapped errors
// are logged and reported as a generic 500.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, r, http.StatusBadRequest, clientMessage(err, domain.ErrBadRequest))
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, clientMessage(err, domain.ErrUnauthorized))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, clientMessage(err, domain.ErrNotFound))
	case errors.Is(err, domain.ErrNotImplemented):
		writeError(w, r, http.StatusNotImplemented, clientMessage(err, domain.ErrNotImplemented))
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// clientMessage drops the trailing ": <sentinel>" added by %w wrapping.
func clientMessage(err, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
