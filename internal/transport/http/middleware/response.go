package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
}

// ErrorEnvelope wraps ErrorBody under the "error" key.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// WriteError writes a JSON-encoded error envelope with the correct Content-Type.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{Error: ErrorBody{
		Message:    msg,
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Path:       r.URL.Path,
	}})
}
