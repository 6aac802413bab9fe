package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Simplici0/printshop/internal/store"
)

const (
	sessionCookieName = "printshop_session"
	sessionTTL        = 7 * 24 * time.Hour
)

type ctxKey int

const userCtxKey ctxKey = iota

// authService signs and verifies session cookies of the form
// base64(email) "." unix-expiry "." hex(hmac).
type authService struct {
	users         *store.Users
	sessionSecret []byte
	now           func() time.Time
}

func newAuthService(users *store.Users, sessionSecret string) *authService {
	return &authService{users: users, sessionSecret: []byte(sessionSecret), now: time.Now}
}

func (a *authService) sign(payload string) []byte {
	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func (a *authService) createSessionValue(email string) string {
	expiry := a.now().Add(sessionTTL).Unix()
	payload := base64.RawURLEncoding.EncodeToString([]byte(email)) + "." + strconv.FormatInt(expiry, 10)
	return payload + "." + hex.EncodeToString(a.sign(payload))
}

func (a *authService) verifySessionValue(value string) (string, bool) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return "", false
	}

	payload := parts[0] + "." + parts[1]
	provided, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", false
	}
	if !hmac.Equal(provided, a.sign(payload)) {
		return "", false
	}

	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || a.now().Unix() >= expiry {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || len(decoded) == 0 {
		return "", false
	}
	return string(decoded), true
}

func (a *authService) setSessionCookie(w http.ResponseWriter, email string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.createSessionValue(email),
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *authService) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// userFromRequest resolves the session cookie to a stored user.
func (a *authService) userFromRequest(r *http.Request) (store.User, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return store.User{}, errUnauthorized
	}
	email, ok := a.verifySessionValue(cookie.Value)
	if !ok {
		return store.User{}, errUnauthorized
	}
	user, err := a.users.Get(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, errUnauthorized
	}
	return user, err
}

var (
	errUnauthorized = &httpError{status: http.StatusUnauthorized, message: "unauthorized"}
	errForbidden    = &httpError{status: http.StatusForbidden, message: "forbidden"}
)

func (s *server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.userFromRequest(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey, user)))
	})
}

func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := userFromContext(r.Context()); !ok || !user.IsAdmin() {
			s.writeError(w, r, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) (store.User, bool) {
	user, ok := ctx.Value(userCtxKey).(store.User)
	return user, ok
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.store.Users.Authenticate(r.Context(), strings.TrimSpace(in.Email), in.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.auth.setSessionCookie(w, user.Email)
	writeJSON(w, http.StatusOK, user)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}
