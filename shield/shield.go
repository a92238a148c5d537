// Package shield provides the HTTP middleware stack for the fouille
// API: security headers, request body limits, per-IP rate limiting,
// request tracing, and HEAD handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack() {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// GetLogger retrieves the per-request logger from the context,
// falling back to slog.Default().
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// DefaultStack returns the standard middleware stack, ordered:
// HeadToGet → SecurityHeaders → MaxJSONBody → TraceID → RateLimiter.
// The health endpoint bypasses rate limiting.
func DefaultStack() []func(http.Handler) http.Handler {
	rl := NewRateLimiter(DefaultLimits(), "/health")
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxJSONBody(64 * 1024),
		TraceID,
		rl.Middleware,
	}
}
