// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services and handlers read them,
// and tests inject them without running the HTTP stack.
package requestcontext

import (
	"context"
	"time"

	id "clavis/pkg/domain"
)

// Identity is the authenticated caller, attached by the auth middleware after
// token verification and user resolution. It carries only the safe projection.
type Identity struct {
	UserID id.UserID
	Name   string
	Email  string
}

// Tracking carries request-correlation metadata for observability. It lives
// exactly as long as the request.
type Tracking struct {
	RequestID string
	StartedAt time.Time
	Path      string
}

// Context key types (unexported for encapsulation).
type (
	identityKey    struct{}
	trackingKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// WithIdentity injects the authenticated identity into the context.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// IdentityFrom retrieves the authenticated identity. The second return is
// false on unauthenticated requests.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey{}).(Identity)
	return ident, ok
}

// WithTracking injects request-tracking metadata into the context.
func WithTracking(ctx context.Context, t Tracking) context.Context {
	return context.WithValue(ctx, trackingKey{}, t)
}

// TrackingFrom retrieves request-tracking metadata, zero-valued if unset.
func TrackingFrom(ctx context.Context) Tracking {
	if t, ok := ctx.Value(trackingKey{}).(Tracking); ok {
		return t
	}
	return Tracking{}
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to time.Now()
// for non-HTTP contexts (workers, tests that don't set it).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
