package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"

	"clavis/internal/auth/session"
	"clavis/internal/platform/middleware"
	"clavis/internal/user"
	id "clavis/pkg/domain"
	dErrors "clavis/pkg/domain-errors"
	"clavis/pkg/requestcontext"
)

// SessionService is the login/refresh/logout surface the handlers delegate to.
type SessionService interface {
	Login(ctx context.Context, in session.LoginInput) (*session.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*session.LoginResult, error)
	Logout(ctx context.Context, userID id.UserID)
	LogoutEverywhere(ctx context.Context, userID id.UserID) error
}

type SessionHandler struct {
	sessions SessionService
	cookies  CookieConfig
	logger   *slog.Logger
}

func NewSessionHandler(sessions SessionService, cookies CookieConfig, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookies: cookies, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse deliberately has no refresh token field; the refresh token
// travels only in the cookie.
type loginResponse struct {
	User        user.Public `json:"user"`
	AccessToken string      `json:"accessToken"`
	ExpiresIn   int         `json:"expiresIn"`
}

func (h *SessionHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Email, "1", "255") || !govalidator.IsEmail(req.Email) {
		writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid email address"))
		return
	}
	if req.Password == "" {
		writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "password is required"))
		return
	}

	ctx := r.Context()
	res, err := h.sessions.Login(ctx, session.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        middleware.ClientIP(ctx),
		UserAgent: middleware.UserAgent(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "login rejected",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		writeError(w, r, err)
		return
	}

	h.cookies.setRefreshCookie(w, res.Tokens.RefreshToken)
	writeJSON(w, http.StatusOK, loginResponse{
		User:        res.User,
		AccessToken: res.Tokens.AccessToken,
		ExpiresIn:   res.ExpiresIn,
	})
}

func (h *SessionHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, r, dErrors.New(dErrors.CodeMissingToken, "refresh cookie missing"))
		return
	}

	res, err := h.sessions.Refresh(ctx, cookie.Value)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh rejected",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		// A dead refresh token is not coming back; drop the cookie with it.
		h.cookies.clearRefreshCookie(w)
		writeError(w, r, err)
		return
	}

	h.cookies.setRefreshCookie(w, res.Tokens.RefreshToken)
	writeJSON(w, http.StatusOK, loginResponse{
		User:        res.User,
		AccessToken: res.Tokens.AccessToken,
		ExpiresIn:   res.ExpiresIn,
	})
}

// handleLogout runs on an authenticated route. Plain logout clears the cookie;
// ?everywhere=true also bumps the token version so every outstanding refresh
// token dies now.
func (h *SessionHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, ok := requestcontext.IdentityFrom(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "identity missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		writeError(w, r, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	if r.URL.Query().Get("everywhere") == "true" {
		if err := h.sessions.LogoutEverywhere(ctx, ident.UserID); err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		h.sessions.Logout(ctx, ident.UserID)
	}

	h.cookies.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
