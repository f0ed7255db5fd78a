// Package middleware holds the HTTP middleware chain: request correlation,
// client metadata, request-scoped time, logging, panic recovery, and the
// authentication gate. Everything here is a standard func(http.Handler)
// http.Handler so the pieces compose in any order the router wants.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"clavis/pkg/requestcontext"
)

const requestIDHeader = "X-Request-Id"

// RequestID attaches a correlation ID to every request. An inbound
// X-Request-Id is trusted as-is so IDs survive proxy hops; otherwise a fresh
// UUID is minted. The ID is echoed on the response for client-side correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
