package middleware

import (
	"net/http"
	"strings"
)

// SecurityConfig drives the Content-Security-Policy directives.
type SecurityConfig struct {
	ImgSources     []string
	ConnectSources []string
	AllowInlineCSS bool
}

// DefaultSecurityConfig allows self plus data/http(s) images and inline styles.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		ImgSources:     []string{"data:", "https:", "http:"},
		AllowInlineCSS: true,
	}
}

// SecurityHeaders sets the standard hardening headers on every response.
func SecurityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	csp := buildCSP(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-DNS-Prefetch-Control", "off")
			h.Set("X-Download-Options", "noopen")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			h.Del("X-Powered-By")
			next.ServeHTTP(w, r)
		})
	}
}

func buildCSP(cfg SecurityConfig) string {
	style := "style-src 'self'"
	if cfg.AllowInlineCSS {
		style += " 'unsafe-inline'"
	}
	csp := []string{
		"default-src 'self'",
		style,
		"script-src 'self'",
		strings.TrimSpace("img-src 'self' " + strings.Join(cfg.ImgSources, " ")),
		strings.TrimSpace("connect-src 'self' " + strings.Join(cfg.ConnectSources, " ")),
	}
	return strings.Join(csp, "; ")
}
