package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/andesgear/pos-api/internal/platform/httpx"
	"github.com/andesgear/pos-api/internal/platform/requestctx"
)

// TraceMiddleware extracts W3C traceparent headers so request logs can be
// correlated with upstream traces. Requests without a valid header pass
// through untouched.
func TraceMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("traceparent"))
			if info, ok := parseTraceparent(header); ok {
				r = r.WithContext(requestctx.WithTrace(r.Context(), info))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseTraceparent parses "00-<trace-id>-<span-id>-<flags>".
func parseTraceparent(header string) (requestctx.TraceInfo, bool) {
	parts := strings.Split(header, "-")
	if len(parts) != 4 {
		return requestctx.TraceInfo{}, false
	}
	traceID, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return requestctx.TraceInfo{}, false
	}
	spanID, err := trace.SpanIDFromHex(parts[2])
	if err != nil {
		return requestctx.TraceInfo{}, false
	}
	return requestctx.TraceInfo{
		TraceID: traceID.String(),
		SpanID:  spanID.String(),
		Sampled: strings.HasSuffix(parts[3], "1"),
	}, true
}

// InjectLoggerMiddleware stores a request-scoped logger in the context,
// annotated with the request id and trace correlation fields.
func InjectLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fields := []zap.Field{}
			if reqID := middleware.GetReqID(r.Context()); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
			if info, ok := requestctx.Trace(r.Context()); ok {
				fields = append(fields,
					zap.String("trace_id", info.TraceID),
					zap.String("span_id", info.SpanID),
					zap.Bool("trace_sampled", info.Sampled),
				)
			}
			scoped := WithRequestFields(logger, fields...)
			next.ServeHTTP(w, r.WithContext(requestctx.WithLogger(r.Context(), scoped)))
		})
	}
}

// RequestLoggerMiddleware emits one structured log line per request.
func RequestLoggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger := requestctx.Logger(r.Context())
			logger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)
		})
	}
}

// RecoveryMiddleware converts panics into 500 responses instead of letting
// the connection drop.
func RecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger := requestctx.Logger(r.Context())
					logger.Error("panic_recovered",
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					httpx.WriteError(r.Context(), w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
