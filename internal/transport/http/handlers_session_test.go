package httptransport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"clavis/internal/auth/session"
	"clavis/internal/transport/http/mocks"
	"clavis/internal/user"
	id "clavis/pkg/domain"
	dErrors "clavis/pkg/domain-errors"
	"clavis/pkg/requestcontext"
)

//go:generate mockgen -source=handlers_session.go -destination=mocks/session-mocks.go -package=mocks SessionService
type SessionHandlerSuite struct {
	suite.Suite
}

func TestSessionHandlerSuite(t *testing.T) {
	suite.Run(t, new(SessionHandlerSuite))
}

var testCookies = CookieConfig{Path: "/api/users", Secure: true}

func (s *SessionHandlerSuite) newHandler(t *testing.T, ident *requestcontext.Identity) (*mocks.MockSessionService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockService := mocks.NewMockSessionService(ctrl)
	handler := NewSessionHandler(mockService, testCookies, logger)

	r := chi.NewRouter()
	r.Post("/api/users/login", handler.handleLogin)
	r.Post("/api/users/refresh", handler.handleRefresh)
	r.Group(func(r chi.Router) {
		if ident != nil {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					ctx := requestcontext.WithIdentity(req.Context(), *ident)
					next.ServeHTTP(w, req.WithContext(ctx))
				})
			})
		}
		r.Post("/api/users/logout", handler.handleLogout)
	})
	return mockService, r
}

func sampleResult() *session.LoginResult {
	return &session.LoginResult{
		User:      user.Public{ID: id.NewUserID(), Name: "Jane", Email: "jane@example.com"},
		Tokens:    session.TokenPair{AccessToken: "access-jwt", RefreshToken: "refresh-jwt"},
		ExpiresIn: 900,
	}
}

func refreshCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	return nil
}

func (s *SessionHandlerSuite) TestHandler_Login() {
	s.T().Run("valid credentials - 200, refresh token only in cookie", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		res := sampleResult()
		mockService.EXPECT().Login(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in session.LoginInput) (*session.LoginResult, error) {
				assert.Equal(t, "jane@example.com", in.Email)
				assert.Equal(t, "Secret123!", in.Password)
				return res, nil
			})

		req := httptest.NewRequest(http.MethodPost, "/api/users/login",
			strings.NewReader(`{"email":"jane@example.com","password":"Secret123!"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "refresh-jwt")
		assert.Contains(t, rr.Body.String(), "access-jwt")

		cookie := refreshCookie(t, rr)
		require.NotNil(t, cookie)
		assert.Equal(t, "refresh-jwt", cookie.Value)
		assert.Equal(t, "/api/users", cookie.Path)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
		assert.Equal(t, 7*24*3600, cookie.MaxAge)
	})

	s.T().Run("bad credentials - 401 generic body", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidCredentials, "password mismatch"))

		req := httptest.NewRequest(http.MethodPost, "/api/users/login",
			strings.NewReader(`{"email":"jane@example.com","password":"wrong-pass"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid credentials")
		assert.NotContains(t, rr.Body.String(), "mismatch")
		assert.Nil(t, refreshCookie(t, rr))
	})

	s.T().Run("locked out - 429 with Retry-After", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeRateLimited, "too many failed login attempts"))

		req := httptest.NewRequest(http.MethodPost, "/api/users/login",
			strings.NewReader(`{"email":"jane@example.com","password":"whatever1"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	})

	s.T().Run("invalid email shape - 422 before the service runs", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().Login(gomock.Any(), gomock.Any()).Times(0)

		req := httptest.NewRequest(http.MethodPost, "/api/users/login",
			strings.NewReader(`{"email":"nope","password":"Secret123!"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	s.T().Run("malformed json - 400", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().Login(gomock.Any(), gomock.Any()).Times(0)

		req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader("{bad"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func (s *SessionHandlerSuite) TestHandler_Refresh() {
	s.T().Run("valid cookie - 200 with rotated pair", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		res := sampleResult()
		mockService.EXPECT().Refresh(gomock.Any(), "old-refresh").Return(res, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/users/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "old-refresh"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		cookie := refreshCookie(t, rr)
		require.NotNil(t, cookie)
		assert.Equal(t, "refresh-jwt", cookie.Value)

		var body loginResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "access-jwt", body.AccessToken)
		assert.Equal(t, 900, body.ExpiresIn)
	})

	s.T().Run("no cookie - 401 without calling the service", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().Refresh(gomock.Any(), gomock.Any()).Times(0)

		req := httptest.NewRequest(http.MethodPost, "/api/users/refresh", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	s.T().Run("revoked token - 401 and cookie cleared", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().Refresh(gomock.Any(), "revoked-refresh").
			Return(nil, dErrors.New(dErrors.CodeTokenRevoked, "token has been revoked"))

		req := httptest.NewRequest(http.MethodPost, "/api/users/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "revoked-refresh"})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		cookie := refreshCookie(t, rr)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
		assert.Equal(t, -1, cookie.MaxAge)
	})
}

func (s *SessionHandlerSuite) TestHandler_Logout() {
	ident := requestcontext.Identity{UserID: id.NewUserID(), Name: "Jane", Email: "jane@example.com"}

	s.T().Run("plain logout clears cookie", func(t *testing.T) {
		mockService, router := s.newHandler(t, &ident)
		mockService.EXPECT().Logout(gomock.Any(), ident.UserID)
		mockService.EXPECT().LogoutEverywhere(gomock.Any(), gomock.Any()).Times(0)

		req := httptest.NewRequest(http.MethodPost, "/api/users/logout", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		cookie := refreshCookie(t, rr)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
		assert.Equal(t, -1, cookie.MaxAge)
	})

	s.T().Run("everywhere=true bumps the version", func(t *testing.T) {
		mockService, router := s.newHandler(t, &ident)
		mockService.EXPECT().LogoutEverywhere(gomock.Any(), ident.UserID).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/api/users/logout?everywhere=true", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, refreshCookie(t, rr))
	})

	s.T().Run("no identity in context - 500", func(t *testing.T) {
		mockService, router := s.newHandler(t, nil)
		mockService.EXPECT().Logout(gomock.Any(), gomock.Any()).Times(0)

		req := httptest.NewRequest(http.MethodPost, "/api/users/logout", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
