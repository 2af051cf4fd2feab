package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/geeta-saathi/backend/internal/config"
	"github.com/geeta-saathi/backend/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload fields. Subject carries the verified phone number.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Provider signs and verifies session JWTs. RS256 when an RSA key pair is
// loaded, HS256 when only a shared secret is configured.
type Provider struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	issuer    string
	expiry    time.Duration
	now       func() time.Time
}

// NewProvider loads the RSA key pair from cfg, falling back to the HMAC
// secret when the key files are unavailable.
func NewProvider(cfg *config.Config) (*Provider, error) {
	p, err := newRSAProviderFromFiles(cfg)
	if err == nil {
		return p, nil
	}
	if cfg.JWTSecret != "" {
		return NewHMACProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTExpiry), nil
	}
	return nil, err
}

func newRSAProviderFromFiles(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return newProvider(jwt.SigningMethodRS256, privKey, pubKey, cfg.JWTIssuer, cfg.JWTExpiry), nil
}

// NewEphemeralProvider generates an in-memory RSA key pair. Tokens it signs
// do not survive a restart; intended for development and tests.
func NewEphemeralProvider(issuer string, expiry time.Duration) (*Provider, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return newProvider(jwt.SigningMethodRS256, key, &key.PublicKey, issuer, expiry), nil
}

// NewHMACProvider signs and verifies with a shared secret (HS256).
func NewHMACProvider(secret []byte, issuer string, expiry time.Duration) *Provider {
	return newProvider(jwt.SigningMethodHS256, secret, secret, issuer, expiry)
}

func newProvider(method jwt.SigningMethod, signKey, verifyKey interface{}, issuer string, expiry time.Duration) *Provider {
	return &Provider{
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		issuer:    issuer,
		expiry:    expiry,
		now:       time.Now,
	}
}

// Sign issues a token whose subject is the phone number.
func (p *Provider) Sign(phone, userID string) (string, error) {
	now := p.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.New(),
			Issuer:    p.issuer,
			Subject:   phone,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(p.method, claims)
	return token.SignedString(p.signKey)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != p.method.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return p.verifyKey, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
