package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort          string
	AppEnv           string
	ExposeIssuedCode bool
	AllowedOrigins   []string // CORS allowed origins
	BodyLimitBytes   int64
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool

	RateLimit      RateLimit
	AuthLimit      RateLimit
	AILimit        RateLimit
	OTPTTL         time.Duration
	OTPMaxAttempts int
	CountryCode    string

	CodeStore     string // "memory" | "redis" | "dynamo"
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SMSProvider string // "sns" or empty
	SNSRegion   string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTSecret         string
	JWTIssuer         string
	JWTExpiry         time.Duration
}

// RateLimit allows Max requests per Window for a single client IP.
type RateLimit struct {
	Window time.Duration
	Max    int
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	OTPCodes string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	env := getEnv("APP_ENV", "development")
	return &Config{
		AppPort:          getEnv("APP_PORT", "3001"),
		AppEnv:           env,
		ExposeIssuedCode: getEnvBool("EXPOSE_ISSUED_CODE", env == "development"),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174"), ","),
		BodyLimitBytes:   int64(getEnvInt("BODY_LIMIT_BYTES", 10<<20)),
		TrustProxy:       getEnvBool("TRUST_PROXY", false),
		RateLimit: RateLimit{
			Window: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			Max:    getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
		},
		AuthLimit: RateLimit{
			Window: getEnvDuration("AUTH_RATE_LIMIT_WINDOW", 15*time.Minute),
			Max:    getEnvInt("AUTH_RATE_LIMIT_MAX", 5),
		},
		AILimit: RateLimit{
			Window: getEnvDuration("AI_RATE_LIMIT_WINDOW", 24*time.Hour),
			Max:    getEnvInt("AI_RATE_LIMIT_MAX", 50),
		},
		OTPTTL:         getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
		CountryCode:    getEnv("PHONE_COUNTRY_CODE", "91"),
		CodeStore:      getEnv("CODE_STORE", "memory"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		AWSRegion:      getEnv("AWS_REGION", "ap-south-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			OTPCodes: getEnv("DYNAMO_TABLE_OTP_CODES", "otp_codes"),
		},
		SMSProvider:       getEnv("SMS_PROVIDER", ""),
		SNSRegion:         getEnv("SNS_REGION", "ap-south-1"),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTIssuer:         getEnv("JWT_ISSUER", "geeta-saathi"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),
	}
}

// IsDevelopment reports whether the service runs with APP_ENV=development.
func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
