// FilePath: api/middleware/api.middleware.request.go
package middleware

import (
	"context"
	"net/http"
	"time"

	nuts "github.com/vaudience/go-nuts"
)

type contextKey string

const (
	RequestIDHeader            = "X-Request-ID"
	ctxKeyRequestID contextKey = "request_id"
)

// RequestID tags every request with an id, reusing the caller's
// X-Request-ID when present, and echoes it in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = nuts.NID("req", 12)
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the id set by RequestID, or a fresh one when
// the middleware did not run.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return nuts.NID("req", 12)
}

// AccessLog logs one line per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)

		nuts.L.Infof("[API] %s %s %d %v (%s)", r.Method, r.URL.Path, sr.status, time.Since(start), RequestIDFromContext(r.Context()))
	})
}
