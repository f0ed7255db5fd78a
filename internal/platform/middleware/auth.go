package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"clavis/internal/auth/token"
	"clavis/internal/platform/metrics"
	"clavis/internal/user"
	id "clavis/pkg/domain"
	dErrors "clavis/pkg/domain-errors"
	"clavis/pkg/platform/sentinel"
	"clavis/pkg/requestcontext"
)

// AccessVerifier validates access tokens and returns their claims.
type AccessVerifier interface {
	VerifyAccess(tokenString string) (*token.AccessClaims, error)
}

// UserResolver loads the account behind a verified token. Resolving on every
// request means a deleted account stops authenticating immediately instead of
// riding out the access token's lifetime.
type UserResolver interface {
	FindByID(ctx context.Context, userID id.UserID) (*user.User, error)
}

// RequireAuth is the authentication gate for protected routes. It extracts the
// Bearer token, verifies the signature and expiry, resolves the account, and
// attaches the caller's identity to the context. Every failure collapses to
// 401 with the same body; the distinguishing detail goes only to the log and
// the rejection counter.
func RequireAuth(verifier AccessVerifier, users UserResolver, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			const bearerPrefix = "Bearer "
			rawToken, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || rawToken == "" {
				reject(ctx, w, logger, m, "missing_token", nil)
				return
			}

			claims, err := verifier.VerifyAccess(rawToken)
			if err != nil {
				reason := "invalid_token"
				if dErrors.HasCode(err, dErrors.CodeTokenExpired) {
					reason = "token_expired"
				}
				reject(ctx, w, logger, m, reason, err)
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				reject(ctx, w, logger, m, "invalid_token", err)
				return
			}

			u, err := users.FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					reject(ctx, w, logger, m, "unknown_user", err)
					return
				}
				logger.ErrorContext(ctx, "auth user lookup failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_error", "could not validate token")
				return
			}

			ctx = requestcontext.WithIdentity(ctx, requestcontext.Identity{
				UserID: u.ID,
				Name:   u.Name,
				Email:  u.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, m *metrics.Metrics, reason string, err error) {
	logger.WarnContext(ctx, "unauthorized request",
		"reason", reason,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	if m != nil {
		m.AuthRejections.WithLabelValues(reason).Inc()
	}
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", dErrors.PublicMessage(dErrors.CodeInvalidToken))
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}
