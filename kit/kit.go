// Package kit holds transport glue shared by the fouille surfaces.
//
// Business logic lives in endpoints; HTTP and MCP transports decode their
// own wire format and hand a typed request to the same endpoint.
package kit

import "context"

// Endpoint is a transport-agnostic operation: typed request in, typed
// response out.
type Endpoint func(ctx context.Context, request any) (any, error)

type contextKey string

const (
	// TransportKey records which transport served the request ("http", "mcp").
	TransportKey contextKey = "kit_transport"

	// TraceIDKey carries the per-request trace ID.
	TraceIDKey contextKey = "kit_trace_id"
)

// WithTraceID tags ctx with a trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// TraceID returns the trace ID from ctx, "" when absent.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTransport tags ctx with the serving transport name.
func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

// Transport returns the transport name from ctx, defaulting to "http".
func Transport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}
