package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/clarity/idgen"
	"github.com/hazyhaar/clarity/kit"
)

// TraceID assigns a trace ID to each request, echoes it in X-Trace-ID and
// stores it under kit.TraceIDKey along with a per-request logger.
// An incoming X-Request-ID is kept as the request ID.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := idgen.Trace()

		ctx := kit.WithTraceID(r.Context(), traceID)
		ctx = kit.WithTransport(ctx, "http")
		if rid := r.Header.Get("X-Request-ID"); rid != "" {
			ctx = kit.WithRequestID(ctx, rid)
		}
		w.Header().Set("X-Trace-ID", traceID)

		logger := slog.Default().With(
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", ExtractIP(r),
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Info("request")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLogger retrieves the per-request logger, or slog.Default().
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
