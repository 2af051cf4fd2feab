package http

import (
	"time"

	"github.com/geeta-saathi/backend/internal/application/auth"
	jwtinfra "github.com/geeta-saathi/backend/internal/infrastructure/jwt"
)

// Deps holds the infrastructure the router wires into services and middleware.
type Deps struct {
	// CodeStore keeps issued one-time codes (memory, redis or dynamo).
	CodeStore auth.CodeStore
	// SMSSender delivers codes when they are not exposed. May be nil.
	SMSSender auth.SMSSender
	Tokens    *jwtinfra.Provider
	// StartedAt feeds the uptime reported by /health.
	StartedAt time.Time
}
