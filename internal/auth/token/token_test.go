package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clavis/internal/platform/config"
	"clavis/internal/user"
	id "clavis/pkg/domain"
	dErrors "clavis/pkg/domain-errors"
)

var testService = NewService(config.JWTConfig{
	AccessSecret:  []byte("test-access-secret"),
	RefreshSecret: []byte("test-refresh-secret"),
})

func testUser() *user.User {
	return &user.User{
		ID:           id.NewUserID(),
		Name:         "Jane Doe",
		Email:        "jane.doe@example.com",
		TokenVersion: 3,
	}
}

func Test_IssueAccessToken(t *testing.T) {
	u := testUser()
	tok, err := testService.IssueAccessToken(u)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := testService.VerifyAccess(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.UserID)
	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, u.Name, claims.Name)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(AccessTokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func Test_IssueRefreshToken(t *testing.T) {
	u := testUser()
	tok, err := testService.IssueRefreshToken(u)
	require.NoError(t, err)

	claims, err := testService.VerifyRefresh(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.UserID)
	assert.EqualValues(t, 3, claims.TokenVersion)
	assert.WithinDuration(t, time.Now().Add(RefreshTokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func Test_SecretsAreDistinctPerKind(t *testing.T) {
	u := testUser()

	// An access token must not verify as a refresh token, and vice versa.
	access, err := testService.IssueAccessToken(u)
	require.NoError(t, err)
	_, err = testService.VerifyRefresh(access)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeInvalidToken, "invalid token"))

	refresh, err := testService.IssueRefreshToken(u)
	require.NoError(t, err)
	_, err = testService.VerifyAccess(refresh)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeInvalidToken, "invalid token"))
}

func Test_VerifyAccess_Garbage(t *testing.T) {
	_, err := testService.VerifyAccess("not-a-token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidToken))
}

func Test_VerifyAccess_Expired(t *testing.T) {
	u := testUser()
	// Sign an already-expired token with the same secret and claims shape.
	claims := AccessClaims{
		UserID: u.ID.String(),
		Email:  u.Email,
		Name:   u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			Issuer:    "clavis",
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-access-secret"))
	require.NoError(t, err)

	_, err = testService.VerifyAccess(expired)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeTokenExpired, "token has expired"))
}

func Test_Verify_RejectsWrongSigningMethod(t *testing.T) {
	// alg=none style tokens must not slip through the HMAC check.
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		UserID: "someone",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = testService.VerifyAccess(unsigned)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidToken))
}
