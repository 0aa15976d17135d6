package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/costworks/internal/store"
)

const (
	sessionCookieName = "costworks_session"
	sessionTTL        = 7 * 24 * time.Hour
)

type passwordSource interface {
	PasswordHash(ctx context.Context, email string) (string, error)
}

type authService struct {
	users         passwordSource
	sessionSecret []byte
	secure        bool
	now           func() time.Time
}

func newAuthService(users passwordSource, sessionSecret string, secure bool) *authService {
	return &authService{users: users, sessionSecret: []byte(sessionSecret), secure: secure, now: time.Now}
}

func (a *authService) validateCredentials(ctx context.Context, email, password string) (bool, error) {
	hash, err := a.users.PasswordHash(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user credentials: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password hash: %w", err)
	}
	return true, nil
}

// createSessionValue signs "email|issued-unix" with the session secret.
func (a *authService) createSessionValue(email string) string {
	raw := email + "|" + strconv.FormatInt(a.now().Unix(), 10)
	payload := base64.RawURLEncoding.EncodeToString([]byte(raw))
	return payload + "." + a.sign(payload)
}

func (a *authService) sign(payload string) string {
	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *authService) verifySessionValue(value string) (string, bool) {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok || strings.Contains(signature, ".") {
		return "", false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	expected, _ := hex.DecodeString(a.sign(payload))
	if !hmac.Equal(provided, expected) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	email, issued, ok := strings.Cut(string(decoded), "|")
	if !ok || email == "" {
		return "", false
	}
	unix, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return "", false
	}
	if a.now().Sub(time.Unix(unix, 0)) > sessionTTL {
		return "", false
	}

	return email, true
}

func (a *authService) setSessionCookie(w http.ResponseWriter, email string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.createSessionValue(email),
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
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
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func isAuthenticated(r *http.Request, auth *authService) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}

	_, ok := auth.verifySessionValue(cookie.Value)
	return ok
}

// authMiddleware lets public paths through, answers unauthenticated API
// calls with 401 and redirects everything else to the login page.
func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) || isAuthenticated(r, s.auth) {
			next.ServeHTTP(w, r)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

func isPublicPath(p string) bool {
	switch p {
	case "/login", "/healthz", "/metrics", "/static":
		return true
	}
	return strings.HasPrefix(p, "/static/")
}
