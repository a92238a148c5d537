package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/fouille/kit"
)

// TraceID generates a random trace ID for each request and injects it
// into the context, the X-Trace-ID response header, and a per-request
// structured logger stored under LoggerKey.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := make([]byte, 4)
		rand.Read(id)
		traceID := hex.EncodeToString(id)

		ctx := kit.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-ID", traceID)

		logger := slog.Default().With(
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Debug("request")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
