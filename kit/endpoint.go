// CLAUDE:SUMMARY Transport-agnostic Endpoint signature, middleware chaining and the endpoint logging middleware.
// Package kit holds the plumbing shared by every clarity surface (HTTP,
// MCP, CLI): the Endpoint signature, middleware composition and the
// request-scoped values carried in a context.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is one operation exposed on a transport: decoded request in,
// encodable response out.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware decorates an Endpoint.
type Middleware func(next Endpoint) Endpoint

// Chain composes middlewares so the first one is the outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs each endpoint call with its transport, trace, document and
// duration.
func Logging(logger *slog.Logger, name string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if id := GetTraceID(ctx); id != "" {
				attrs = append(attrs, "trace_id", id)
			}
			if doc := GetDocument(ctx); doc != "" {
				attrs = append(attrs, "document", doc)
			}
			if err != nil {
				logger.ErrorContext(ctx, "endpoint failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.DebugContext(ctx, "endpoint ok", attrs...)
			return resp, nil
		}
	}
}

// Timeout bounds the endpoint call duration. Zero disables the bound.
func Timeout(d time.Duration) Middleware {
	return func(next Endpoint) Endpoint {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, req any) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}
