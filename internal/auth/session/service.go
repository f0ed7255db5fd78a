// Package session orchestrates login, token refresh, and logout. It owns no
// token or hashing logic itself; it sequences the credential store, the
// password check, and the token service, and records the outcome.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clavis/internal/audit"
	"clavis/internal/auth/lockout"
	"clavis/internal/auth/password"
	"clavis/internal/auth/token"
	"clavis/internal/platform/metrics"
	"clavis/internal/user"
	id "clavis/pkg/domain"
	dErrors "clavis/pkg/domain-errors"
	"clavis/pkg/platform/sentinel"
	"clavis/pkg/requestcontext"
)

// UserStore is the subset of the credential store the session manager needs.
type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	SetLastLogin(ctx context.Context, userID id.UserID, at time.Time) error
	BumpTokenVersion(ctx context.Context, userID id.UserID) (int64, error)
}

// TokenService issues and verifies the two token kinds.
type TokenService interface {
	IssueAccessToken(u *user.User) (string, error)
	IssueRefreshToken(u *user.User) (string, error)
	VerifyRefresh(tokenString string) (*token.RefreshClaims, error)
}

// AuditPublisher records session events, fire-and-forget.
type AuditPublisher interface {
	Emit(event audit.Event)
}

// LoginInput carries the credentials plus client metadata for auditing and
// lockout accounting.
type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// TokenPair is one issued access/refresh pair. The refresh token travels only
// in the cookie; handlers must never serialize it into a body.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is the successful login payload.
type LoginResult struct {
	User      user.Public
	Tokens    TokenPair
	ExpiresIn int // access token lifetime in seconds
}

// Service is the session lifecycle manager.
type Service struct {
	users   UserStore
	tokens  TokenService
	lockout *lockout.Service
	auditor AuditPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func New(
	users UserStore,
	tokens TokenService,
	lock *lockout.Service,
	auditor AuditPublisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		lockout: lock,
		auditor: auditor,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("clavis/internal/auth/session"),
	}
}

// Login authenticates the credentials and issues a fresh token pair. A missing
// account and a wrong password both come back as CodeInvalidCredentials; the
// wrapped sentinel keeps them distinguishable in logs without letting the
// response leak which one happened.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "session.login")
	defer span.End()

	if s.lockout != nil {
		if err := s.lockout.Check(ctx, in.Email, in.IP); err != nil {
			s.countLogin("rate_limited")
			return nil, err
		}
	}

	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.loginFailed(ctx, in, "unknown email")
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidCredentials, "unknown email")
		}
		s.countLogin("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up user")
	}

	if !password.Verify(in.Password, u.PasswordHash) {
		s.loginFailed(ctx, in, "password mismatch")
		return nil, dErrors.New(dErrors.CodeInvalidCredentials, "password mismatch")
	}

	now := requestcontext.Now(ctx).UTC()
	if err := s.users.SetLastLogin(ctx, u.ID, now); err != nil {
		s.countLogin("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not record login")
	}
	u.LastLogin = &now

	pair, err := s.issuePair(u)
	if err != nil {
		s.countLogin("error")
		return nil, err
	}

	if s.lockout != nil {
		s.lockout.Clear(ctx, in.Email, in.IP)
	}
	s.countLogin("success")
	span.SetAttributes(attribute.String("user_id", u.ID.String()))
	s.auditor.Emit(audit.Event{
		Action:    audit.ActionUserLogin,
		UserID:    u.ID,
		RequestID: requestcontext.RequestID(ctx),
		Success:   true,
		Fields:    audit.ClientFields(in.UserAgent, in.IP),
	})

	return &LoginResult{
		User:      u.Public(),
		Tokens:    pair,
		ExpiresIn: int(token.AccessTokenTTL.Seconds()),
	}, nil
}

// Refresh verifies a refresh token, checks it against the live token version,
// and rotates the pair. The superseded refresh token stays signature-valid
// until its own expiry; only a version bump revokes it early.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "session.refresh")
	defer span.End()

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.countRefresh("invalid_token")
		return nil, err
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		s.countRefresh("invalid_token")
		return nil, dErrors.New(dErrors.CodeInvalidToken, "token subject is not a valid user id")
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// The account is gone; externally indistinguishable from a bad token.
			s.countRefresh("user_missing")
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidToken, "user no longer exists")
		}
		s.countRefresh("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up user")
	}

	if u.TokenVersion != claims.TokenVersion {
		s.countRefresh("revoked")
		s.auditor.Emit(audit.Event{
			Action:    audit.ActionTokenRefreshed,
			UserID:    u.ID,
			RequestID: requestcontext.RequestID(ctx),
			Success:   false,
			Fields:    map[string]string{"reason": "token_revoked"},
		})
		return nil, dErrors.New(dErrors.CodeTokenRevoked, "token has been revoked")
	}

	pair, err := s.issuePair(u)
	if err != nil {
		s.countRefresh("error")
		return nil, err
	}

	s.countRefresh("success")
	span.SetAttributes(attribute.String("user_id", u.ID.String()))
	s.auditor.Emit(audit.Event{
		Action:    audit.ActionTokenRefreshed,
		UserID:    u.ID,
		RequestID: requestcontext.RequestID(ctx),
		Success:   true,
	})

	return &LoginResult{
		User:      u.Public(),
		Tokens:    pair,
		ExpiresIn: int(token.AccessTokenTTL.Seconds()),
	}, nil
}

// Logout records the logout. Clearing the refresh cookie is the transport's
// job; without a version bump the server keeps no session state to tear down.
func (s *Service) Logout(ctx context.Context, userID id.UserID) {
	s.auditor.Emit(audit.Event{
		Action:    audit.ActionUserLogout,
		UserID:    userID,
		RequestID: requestcontext.RequestID(ctx),
		Success:   true,
	})
}

// LogoutEverywhere bumps the token version, revoking every outstanding refresh
// token for the user in O(1).
func (s *Service) LogoutEverywhere(ctx context.Context, userID id.UserID) error {
	ctx, span := s.tracer.Start(ctx, "session.logout_everywhere")
	defer span.End()

	version, err := s.users.BumpTokenVersion(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not revoke sessions")
	}

	s.logger.InfoContext(ctx, "revoked all refresh tokens",
		"user_id", userID.String(),
		"token_version", version,
	)
	s.auditor.Emit(audit.Event{
		Action:    audit.ActionUserLogout,
		UserID:    userID,
		RequestID: requestcontext.RequestID(ctx),
		Success:   true,
		Fields:    map[string]string{"everywhere": "true"},
	})
	return nil
}

func (s *Service) issuePair(u *user.User) (TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(u)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefreshToken(u)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) loginFailed(ctx context.Context, in LoginInput, reason string) {
	if s.lockout != nil {
		s.lockout.RecordFailure(ctx, in.Email, in.IP)
	}
	s.countLogin("invalid_credentials")
	s.logger.WarnContext(ctx, "login rejected",
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.auditor.Emit(audit.Event{
		Action:    audit.ActionUserLogin,
		RequestID: requestcontext.RequestID(ctx),
		Success:   false,
		Fields:    audit.ClientFields(in.UserAgent, in.IP),
	})
}

func (s *Service) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.Logins.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.TokenRefreshes.WithLabelValues(outcome).Inc()
	}
}
