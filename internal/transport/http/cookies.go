package httptransport

import (
	"net/http"

	"clavis/internal/auth/token"
)

const refreshCookieName = "refreshToken"

// CookieConfig fixes the refresh cookie attributes at construction time.
// Path scopes the cookie so browsers only attach it to this service's routes;
// Secure is on in production and off for local plain-HTTP development.
type CookieConfig struct {
	Path   string
	Secure bool
}

// setRefreshCookie places the refresh token in its HttpOnly cookie. The cookie
// is the only transport for refresh tokens; they never appear in a body.
func (c CookieConfig) setRefreshCookie(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     c.Path,
		MaxAge:   int(token.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearRefreshCookie expires the cookie immediately. Attributes must match the
// set path or browsers keep the old cookie around.
func (c CookieConfig) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     c.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
