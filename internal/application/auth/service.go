package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/geeta-saathi/backend/internal/domain"
	jwtinfra "github.com/geeta-saathi/backend/internal/infrastructure/jwt"
	"github.com/geeta-saathi/backend/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

const (
	smsTemplate        = "Your Geeta Saathi verification code is: "
	defaultMaxAttempts = 5
)

// Config controls the handshake. It is built once from the process config
// and never re-read from the environment.
type Config struct {
	// ExposeIssuedCode returns and logs the issued code instead of sending
	// it, and accepts any well-formed code on verification.
	ExposeIssuedCode bool
	CodeTTL          time.Duration
	CountryCode      string
	// HashCost is the bcrypt cost for stored codes; zero means bcrypt.DefaultCost.
	HashCost int
	// MaxAttempts is how many wrong codes burn an issued code; zero means 5.
	MaxAttempts int
}

// CodeStore holds at most one issued code per phone number.
type CodeStore interface {
	Put(ctx context.Context, c *domain.OneTimeCode) error
	// Take atomically removes and returns the live code for phone, or
	// domain.ErrNotFound. At most one concurrent caller gets a given code.
	Take(ctx context.Context, phone string) (*domain.OneTimeCode, error)
	// Restore puts back a code taken by a failed attempt, unless a newer
	// code has been issued for the phone since.
	Restore(ctx context.Context, c *domain.OneTimeCode) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type TokenIssuer interface {
	Sign(phone, userID string) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

// IssuedCode acknowledges a send. Code is empty unless ExposeIssuedCode is set.
type IssuedCode struct {
	Code      string
	ExpiresAt time.Time
}

// Verdict is the outcome of a verification. Token and User are set only on success.
type Verdict struct {
	Success bool
	Token   string
	User    *domain.User
}

type Service interface {
	Issue(ctx context.Context, phone string) (*IssuedCode, error)
	Verify(ctx context.Context, phone, code string) (*Verdict, error)
	DecodeToken(token string) (phone string, err error)
}

// ServiceDeps groups the collaborators of the handshake. SMSSender may be nil.
type ServiceDeps struct {
	Config    Config
	CodeStore CodeStore
	SMSSender SMSSender
	Tokens    TokenIssuer
	Now       func() time.Time
}

type service struct {
	cfg       Config
	phones    PhoneFormat
	codeStore CodeStore
	smsSender SMSSender
	tokens    TokenIssuer
	now       func() time.Time
}

func NewService(deps ServiceDeps) Service {
	cfg := deps.Config
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		cfg:       cfg,
		phones:    NewPhoneFormat(cfg.CountryCode),
		codeStore: deps.CodeStore,
		smsSender: deps.SMSSender,
		tokens:    deps.Tokens,
		now:       now,
	}
}

func (s *service) Issue(ctx context.Context, phone string) (*IssuedCode, error) {
	if !s.phones.Match(phone) {
		return nil, fmt.Errorf("Invalid phone number. Must be in format +%sXXXXXXXXXX: %w", s.cfg.CountryCode, domain.ErrBadRequest)
	}
	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash otp: %w", err)
	}
	now := s.now()
	expiresAt := now.Add(s.cfg.CodeTTL)
	if err := s.codeStore.Put(ctx, &domain.OneTimeCode{
		PhoneNumber: phone,
		CodeHash:    string(hash),
		IssuedAt:    now.Unix(),
		ExpiresAt:   expiresAt.Unix(),
	}); err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}

	if s.cfg.ExposeIssuedCode {
		slog.Info("[DEV MODE] otp issued", "phone", phone, "otp", code, "expires_at", expiresAt)
		return &IssuedCode{Code: code, ExpiresAt: expiresAt}, nil
	}

	if s.smsSender == nil {
		slog.Warn("no SMS sender configured, otp not delivered", "phone", maskPhone(phone))
		return &IssuedCode{ExpiresAt: expiresAt}, nil
	}
	if err := s.smsSender.SendSMS(ctx, phone, smsTemplate+code); err != nil {
		return nil, fmt.Errorf("send otp sms: %w", err)
	}
	slog.Info("otp sent", "phone", maskPhone(phone), "expires_at", expiresAt)
	return &IssuedCode{ExpiresAt: expiresAt}, nil
}

func (s *service) Verify(ctx context.Context, phone, code string) (*Verdict, error) {
	if !validCode(code) {
		return &Verdict{}, nil
	}
	if !s.cfg.ExposeIssuedCode {
		ok, err := s.checkStored(ctx, phone, code)
		if err != nil || !ok {
			return &Verdict{}, err
		}
	}

	user := &domain.User{
		ID:        id.Prefixed("user"),
		Phone:     phone,
		IsNewUser: false,
	}
	token, err := s.tokens.Sign(phone, user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Verdict{Success: true, Token: token, User: user}, nil
}

// checkStored takes the stored code out of the store before comparing, so a
// code can only ever be matched once. A wrong guess puts it back with one
// more attempt recorded until MaxAttempts is reached.
func (s *service) checkStored(ctx context.Context, phone, code string) (bool, error) {
	stored, err := s.codeStore.Take(ctx, phone)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume otp: %w", err)
	}
	if stored.Expired(s.now()) {
		return false, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte(code)) == nil {
		return true, nil
	}

	stored.Attempts++
	if stored.Attempts >= s.cfg.MaxAttempts {
		slog.Warn("otp attempts exhausted, code discarded", "phone", maskPhone(phone), "attempts", stored.Attempts)
		return false, nil
	}
	if err := s.codeStore.Restore(ctx, stored); err != nil {
		slog.Warn("failed to restore otp after wrong guess", "phone", maskPhone(phone), "err", err)
	}
	return false, nil
}

func (s *service) DecodeToken(token string) (string, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthorized)
	}
	return claims.Subject, nil
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
