package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"gymadmin/internal/adapters/metrics"
)

// DefaultSlowRequest is the default threshold for slow request warnings.
const DefaultSlowRequest = 200 * time.Millisecond

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// unmatchedRoute labels requests that no registered pattern served.
const unmatchedRoute = "unmatched"

type contextKey int

const routeKey contextKey = iota

// routeInfo is filled in by Route once the mux has picked a pattern.
type routeInfo struct {
	pattern string
	id      string
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
// PRE: code is a valid HTTP status code
// POST: status stored, header written to underlying ResponseWriter
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// statusWriterPool reduces allocations on the hot path.
var statusWriterPool = sync.Pool{
	New: func() any {
		return &statusWriter{}
	},
}

// Timing returns middleware that tags each request with an ID, logs its duration
// and records it in collector under the matched route pattern.
// Normal requests log at DEBUG; requests at or above slow log at WARN.
// A non-positive slow uses DefaultSlowRequest; collector may be nil.
func Timing(collector *metrics.Collector, slow time.Duration) func(http.Handler) http.Handler {
	if slow <= 0 {
		slow = DefaultSlowRequest
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &routeInfo{pattern: unmatchedRoute, id: r.Header.Get(RequestIDHeader)}
			if _, err := uuid.Parse(info.id); err != nil {
				info.id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, info.id)
			r = r.WithContext(context.WithValue(r.Context(), routeKey, info))

			sw := statusWriterPool.Get().(*statusWriter)
			sw.ResponseWriter = w
			sw.status = http.StatusOK
			defer func() {
				d := time.Since(start)
				attrs := []any{
					"request_id", info.id,
					"method", r.Method,
					"path", r.URL.Path,
					"route", info.pattern,
					"status", sw.status,
					"duration_ms", float64(d.Microseconds()) / 1000.0,
				}
				if d >= slow {
					slog.Warn("slow_request", attrs...)
				} else {
					slog.Debug("request", attrs...)
				}
				collector.ObserveRequest(r.Method, info.pattern, sw.status, d)

				sw.ResponseWriter = nil
				statusWriterPool.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

// Route records the pattern the mux matched for r, so Timing can label metrics by route
// instead of by raw path. Handlers registered on the mux call it first.
func Route(r *http.Request) {
	if info, ok := r.Context().Value(routeKey).(*routeInfo); ok && r.Pattern != "" {
		info.pattern = r.Pattern
	}
}

// RequestID returns the correlation ID Timing assigned to the request, or "".
func RequestID(ctx context.Context) string {
	if info, ok := ctx.Value(routeKey).(*routeInfo); ok {
		return info.id
	}
	return ""
}
