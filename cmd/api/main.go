package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geeta-saathi/backend/internal/application/auth"
	"github.com/geeta-saathi/backend/internal/config"
	"github.com/geeta-saathi/backend/internal/infrastructure/dynamo"
	jwtinfra "github.com/geeta-saathi/backend/internal/infrastructure/jwt"
	"github.com/geeta-saathi/backend/internal/infrastructure/memory"
	redisinfra "github.com/geeta-saathi/backend/internal/infrastructure/redis"
	"github.com/geeta-saathi/backend/internal/infrastructure/sns"
	transporthttp "github.com/geeta-saathi/backend/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	startedAt := time.Now()
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	codeStore, closeStore, err := newCodeStore(ctx, cfg)
	if err != nil {
		fatal("code store unavailable", err)
	}
	defer closeStore()

	var smsSender auth.SMSSender
	if cfg.SMSProvider == "sns" {
		sender, err := sns.NewSender(ctx, cfg)
		if err != nil {
			fatal("SNS sender not available", err)
		}
		smsSender = sender
	} else if !cfg.ExposeIssuedCode {
		slog.Warn("SMS_PROVIDER not set, codes will not be delivered")
	}

	tokens, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		if !cfg.IsDevelopment() {
			fatal("JWT provider not available", err)
		}
		slog.Warn("JWT keys not found, using an ephemeral signing key", "err", err)
		if tokens, err = jwtinfra.NewEphemeralProvider(cfg.JWTIssuer, cfg.JWTExpiry); err != nil {
			fatal("ephemeral JWT provider", err)
		}
	}

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		CodeStore: codeStore,
		SMSSender: smsSender,
		Tokens:    tokens,
		StartedAt: startedAt,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting",
			"port", cfg.AppPort,
			"env", cfg.AppEnv,
			"code_store", cfg.CodeStore,
			"expose_codes", cfg.ExposeIssuedCode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server error", err)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		return
	}
	slog.Info("server stopped")
}

// newCodeStore selects the one-time code backend named by CODE_STORE.
// The returned close func releases any connection it opened.
func newCodeStore(ctx context.Context, cfg *config.Config) (auth.CodeStore, func(), error) {
	switch cfg.CodeStore {
	case "", "memory":
		store := memory.NewCodeStore()
		go store.Run(ctx, time.Minute)
		return store, func() {}, nil
	case "redis":
		client, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return redisinfra.NewCodeStore(client), func() { _ = client.Close() }, nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.NewCodeRepo(client, cfg.DynamoTables.OTPCodes), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown CODE_STORE %q", cfg.CodeStore)
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if cfg.IsDevelopment() {
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
