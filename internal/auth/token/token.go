// Package token owns JWT issuance and verification for both token kinds.
// It is the single owner of token logic; the session manager and handlers are
// callers, never issuers of their own.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"clavis/internal/platform/config"
	"clavis/internal/user"
	dErrors "clavis/pkg/domain-errors"
)

const (
	// AccessTokenTTL bounds the window a stolen access token stays usable.
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL matches the refresh cookie lifetime.
	RefreshTokenTTL = 7 * 24 * time.Hour

	issuer = "clavis"
)

// AccessClaims are carried by short-lived access tokens. Verification is
// stateless: signature and expiry only, no store lookup.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// RefreshClaims are carried by refresh tokens. TokenVersion pins the token to
// the counter value at issuance; a bump revokes every outstanding refresh token.
type RefreshClaims struct {
	UserID       string `json:"user_id"`
	TokenVersion int64  `json:"token_version"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens. The secrets are resolved once at startup
// and passed in; the service never reaches back into the environment.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
}

func NewService(cfg config.JWTConfig) *Service {
	return &Service{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
	}
}

// IssueAccessToken signs a 15-minute access token for the user.
func (s *Service) IssueAccessToken(u *user.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: u.ID.String(),
		Email:  u.Email,
		Name:   u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign access token")
	}
	return signed, nil
}

// IssueRefreshToken signs a 7-day refresh token carrying the user's current
// token version.
func (s *Service) IssueRefreshToken(u *user.User) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		UserID:       u.ID.String(),
		TokenVersion: u.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign refresh token")
	}
	return signed, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, claims, s.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns its claims. The token
// version comparison against the stored user happens in the session manager,
// not here; this call only establishes signature and expiry.
func (s *Service) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenString, claims, s.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.New(dErrors.CodeTokenExpired, "token has expired")
		}
		return dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}
	if !parsed.Valid {
		return dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}
	return nil
}
