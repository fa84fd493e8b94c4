package security

import (
	"net/http"
	"time"
)

const (
	RefreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

func cookieName(secure bool) string {
	if secure {
		return "__Secure-" + RefreshCookieName
	}
	return RefreshCookieName
}

func SetRefreshToken(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(secure),
		Value:    token,
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func ClearRefreshToken(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(secure),
		Value:    "",
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// ReadRefreshToken prefers the secure cookie and falls back to the plain one
// used in local development. It returns "" when neither is present.
func ReadRefreshToken(r *http.Request) string {
	if c, err := r.Cookie(cookieName(true)); err == nil && c.Value != "" {
		return c.Value
	}
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		return c.Value
	}
	return ""
}
