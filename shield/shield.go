// Package shield provides the HTTP middleware placed in front of the
// analysis API: security headers, upload size caps, per-request tracing
// and a per-client rate limit guarding the classification quota.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.APIStack(shield.StackConfig{MaxBodyBytes: 20 << 20}) {
//	    r.Use(mw)
//	}
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// StackConfig parameterises APIStack.
type StackConfig struct {
	// MaxBodyBytes caps every request body. Zero disables the cap.
	MaxBodyBytes int64

	// RateLimit, when enabled, is applied to /api/ paths.
	RateLimit RateLimitConfig
}

// APIStack returns the standard middleware stack for the analysis API,
// ordered SecurityHeaders → MaxBody → TraceID → RateLimiter.
func APIStack(cfg StackConfig) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		SecurityHeaders(DefaultHeaders()),
		MaxBody(cfg.MaxBodyBytes),
		TraceID,
	}
	if cfg.RateLimit.Enabled {
		stack = append(stack, NewRateLimiter(cfg.RateLimit, "/health").Middleware)
	}
	return stack
}
