package handler

import (
	"net/http"
	"time"
)

type healthEnvelope struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}

// HealthHandler reports liveness, process uptime and environment.
type HealthHandler struct {
	startedAt time.Time
	env       string
}

func NewHealthHandler(startedAt time.Time, env string) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, env: env}
}

func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, healthEnvelope{
		Status:      "ok",
		Timestamp:   now.UTC().Format(time.RFC3339Nano),
		Uptime:      now.Sub(h.startedAt).Seconds(),
		Environment: h.env,
	})
}

type notFoundEnvelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, notFoundEnvelope{
		Error:     "Not Found",
		Message:   "Cannot " + r.Method + " " + r.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// MethodNotAllowed answers known paths hit with an unsupported method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
