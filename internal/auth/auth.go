// Package auth is the login gate in front of the web UI. It maps a session
// cookie to a principal; everything behind the gate only sees the principal.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"caffeine/internal/core"
)

const (
	// CookieName is the session cookie set after a successful login.
	CookieName = "caffeine_session"

	DefaultSessionTTL = 7 * 24 * time.Hour

	LoginPath = "/login"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMalformedUsers     = errors.New("malformed AUTH_USERS entry")
)

type principalKey struct{}

type Config struct {
	// Users is a comma separated list of principal:bcrypt-hash pairs.
	Users          string
	Disabled       bool
	LocalPrincipal string
	SecureCookies  bool
	SessionTTL     time.Duration
}

type session struct {
	principal core.Principal
	expiresAt time.Time
}

// Authenticator verifies credentials and tracks sessions in memory.
// Sessions do not survive a restart.
type Authenticator struct {
	users    map[core.Principal][]byte
	disabled bool
	local    core.Principal
	secure   bool
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]session
}

func New(cfg Config, logger *slog.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authenticator{
		disabled: cfg.Disabled,
		local:    core.Principal(strings.TrimSpace(cfg.LocalPrincipal)),
		secure:   cfg.SecureCookies,
		ttl:      cfg.SessionTTL,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]session),
	}
	if a.ttl <= 0 {
		a.ttl = DefaultSessionTTL
	}
	if a.disabled {
		if a.local.IsAnonymous() {
			return nil, errors.New("auth disabled but no local principal configured")
		}
		return a, nil
	}

	users, err := ParseUsers(cfg.Users)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errors.New("no users configured")
	}
	a.users = users
	return a, nil
}

// ParseUsers parses "alice:$2a$10$...,bob:$2a$10$...".
func ParseUsers(raw string) (map[core.Principal][]byte, error) {
	users := make(map[core.Principal][]byte)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, hash, ok := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		hash = strings.TrimSpace(hash)
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedUsers, name)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrMalformedUsers, name, err)
		}
		users[core.Principal(name)] = []byte(hash)
	}
	return users, nil
}

// Disabled reports whether every request runs as the local principal.
func (a *Authenticator) Disabled() bool {
	return a.disabled
}

// Verify checks a password against the stored bcrypt hash.
func (a *Authenticator) Verify(principal, password string) (core.Principal, error) {
	p := core.Principal(strings.TrimSpace(principal))
	hash, ok := a.users[p]
	if !ok || p.IsAnonymous() {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return p, nil
}

// Login verifies the credentials and sets a fresh session cookie.
func (a *Authenticator) Login(w http.ResponseWriter, principal, password string) (core.Principal, error) {
	p, err := a.Verify(principal, password)
	if err != nil {
		return "", err
	}
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	expires := a.now().Add(a.ttl)

	a.mu.Lock()
	a.sessions[token] = session{principal: p, expiresAt: expires}
	a.mu.Unlock()

	http.SetCookie(w, a.cookie(token, expires))
	return p, nil
}

// Logout drops the session and clears the cookie.
func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		a.mu.Lock()
		delete(a.sessions, c.Value)
		a.mu.Unlock()
	}
	c := a.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// Principal returns the caller of r, or the anonymous principal.
func (a *Authenticator) Principal(r *http.Request) core.Principal {
	if a.disabled {
		return a.local
	}
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return ""
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[c.Value]
	if !ok {
		return ""
	}
	if !a.now().Before(s.expiresAt) {
		delete(a.sessions, c.Value)
		return ""
	}
	return s.principal
}

// Middleware stores the caller in the request context. Anonymous callers are
// sent to the login page.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := a.Principal(r)
		if p.IsAnonymous() {
			a.logger.DebugContext(r.Context(), "Unauthenticated request", "path", r.URL.Path)
			RedirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RedirectToLogin uses HX-Redirect for HTMX requests and a 303 otherwise.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", LoginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// CleanExpired removes expired sessions and returns how many were dropped.
func (a *Authenticator) CleanExpired() int {
	now := a.now()
	a.mu.Lock()
	defer a.mu.Unlock()
	removed := 0
	for token, s := range a.sessions {
		if !now.Before(s.expiresAt) {
			delete(a.sessions, token)
			removed++
		}
	}
	return removed
}

func (a *Authenticator) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func WithPrincipal(ctx context.Context, p core.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the anonymous principal when none was stored.
func PrincipalFromContext(ctx context.Context) core.Principal {
	p, _ := ctx.Value(principalKey{}).(core.Principal)
	return p
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
