package http

import (
	"context"
	"net/http"
	"time"

	"github.com/geeta-saathi/backend/internal/application/auth"
	"github.com/geeta-saathi/backend/internal/config"
	"github.com/geeta-saathi/backend/internal/transport/http/handler"
	appmiddleware "github.com/geeta-saathi/backend/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	generalLimitMessage = "Too many requests from this IP, please try again later."
	authLimitMessage    = "Too many OTP attempts. Please try again later."
	aiLimitMessage      = "Daily AI question limit reached. Try again tomorrow."
)

// NewRouter builds and returns the application router. Rate limiter cleanup
// goroutines stop when ctx is done.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(appmiddleware.Recoverer)
	if cfg.AppEnv != "test" {
		r.Use(chimiddleware.Logger)
	}
	r.Use(appmiddleware.SecurityHeaders(appmiddleware.DefaultSecurityConfig()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.RequestSize(cfg.BodyLimitBytes))

	generalRL := appmiddleware.NewRateLimiter(ctx, cfg.RateLimit.Window, cfg.RateLimit.Max, generalLimitMessage)
	authRL := appmiddleware.NewRateLimiter(ctx, cfg.AuthLimit.Window, cfg.AuthLimit.Max, authLimitMessage)
	// Separate buckets so requesting codes does not consume verify attempts.
	verifyRL := appmiddleware.NewRateLimiter(ctx, cfg.AuthLimit.Window, cfg.AuthLimit.Max, authLimitMessage)
	aiRL := appmiddleware.NewRateLimiter(ctx, cfg.AILimit.Window, cfg.AILimit.Max, aiLimitMessage)

	authSvc := auth.NewService(auth.ServiceDeps{
		Config: auth.Config{
			ExposeIssuedCode: cfg.ExposeIssuedCode,
			CodeTTL:          cfg.OTPTTL,
			CountryCode:      cfg.CountryCode,
			MaxAttempts:      cfg.OTPMaxAttempts,
		},
		CodeStore: deps.CodeStore,
		SMSSender: deps.SMSSender,
		Tokens:    deps.Tokens,
	})

	startedAt := deps.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	healthH := handler.NewHealthHandler(startedAt, cfg.AppEnv)
	authH := handler.NewAuthHandler(authSvc)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health", healthH.Check)

	r.Route("/api", func(r chi.Router) {
		r.Use(generalRL.Limit)

		r.Route("/auth", func(r chi.Router) {
			r.With(authRL.Limit).Post("/send-code", authH.SendCode)
			r.With(verifyRL.Limit).Post("/verify-code", authH.VerifyCode)
			r.Post("/refresh", authH.Refresh)
		})

		r.With(appmiddleware.Auth(deps.Tokens)).Get("/users/me", handler.Me)
		r.With(aiRL.Limit).Post("/ai/chat", handler.AIChat)
	})

	return r
}
