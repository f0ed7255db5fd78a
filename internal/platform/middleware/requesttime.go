package middleware

import (
	"net/http"
	"time"

	"clavis/pkg/requestcontext"
)

// RequestTime pins a single "now" to the request so every timestamp written
// during one request agrees: lastLogin, updated_at, and audit events all read
// the same instant.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		ctx := requestcontext.WithTime(r.Context(), now)
		ctx = requestcontext.WithTracking(ctx, requestcontext.Tracking{
			RequestID: requestcontext.RequestID(ctx),
			StartedAt: now,
			Path:      r.URL.Path,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
