package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// CookieName is the session cookie set after login.
const CookieName = "authenticated"

// Auth guards admin routes with a password and a per-process session token.
// An empty password disables the check.
type Auth struct {
	password string
	token    string
}

// NewAuth creates an Auth with a fresh session token.
func NewAuth(password string) *Auth {
	buf := make([]byte, 32)
	rand.Read(buf)
	return &Auth{password: password, token: hex.EncodeToString(buf)}
}

func (a *Auth) Enabled() bool {
	return a.password != ""
}

// CheckPassword compares in constant time.
func (a *Auth) CheckPassword(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
}

// SessionCookie returns the cookie issued on successful login.
func (a *Auth) SessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    a.token,
		Path:     "/",
		MaxAge:   2592000, // 30 days
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *Auth) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(a.token)) == 1
}

// isPublic lists paths the mobile client and viewers reach without logging in.
func isPublic(path string) bool {
	return path == "/" ||
		path == "/status" ||
		path == "/health" ||
		path == "/snapshot.jpg" ||
		path == "/api/view" ||
		strings.HasPrefix(path, "/camera") ||
		strings.HasPrefix(path, "/auth/")
}

// AuthMiddleware lets public paths through and requires the session cookie
// everywhere else.
func (a *Auth) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() || isPublic(r.URL.Path) || a.authenticated(r) {
			next.ServeHTTP(w, r)
			return
		}

		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}
