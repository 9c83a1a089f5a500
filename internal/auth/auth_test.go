package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"caffeine/internal/core"
)

func hashFor(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestAuth(t *testing.T) *Authenticator {
	t.Helper()
	a, err := New(Config{Users: "ada:" + hashFor(t, "s3cret")}, nil)
	require.NoError(t, err)
	return a
}

func loginCookie(t *testing.T, a *Authenticator) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	_, err := a.Login(rr, "ada", "s3cret")
	require.NoError(t, err)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestParseUsers(t *testing.T) {
	h := hashFor(t, "pw")

	users, err := ParseUsers(" ada:" + h + " , bob:" + h + ",")
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Contains(t, users, core.Principal("bob"))

	for _, raw := range []string{"ada", "ada:", ":" + h, "ada:not-a-hash"} {
		_, err := ParseUsers(raw)
		assert.ErrorIs(t, err, ErrMalformedUsers, raw)
	}
}

func TestNew_Config(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)

	_, err = New(Config{Disabled: true}, nil)
	assert.Error(t, err)

	a, err := New(Config{Disabled: true, LocalPrincipal: "me"}, nil)
	require.NoError(t, err)
	assert.True(t, a.Disabled())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, core.Principal("me"), a.Principal(r))
}

func TestVerify(t *testing.T) {
	a := newTestAuth(t)

	p, err := a.Verify(" ada ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, core.Principal("ada"), p)

	_, err = a.Verify("ada", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Verify("eve", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSessionAndLogout(t *testing.T) {
	a := newTestAuth(t)
	c := loginCookie(t, a)
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	assert.Equal(t, core.Principal("ada"), a.Principal(r))

	rr := httptest.NewRecorder()
	a.Logout(rr, r)
	assert.True(t, a.Principal(r).IsAnonymous())
	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
}

func TestSecureCookieFlag(t *testing.T) {
	a, err := New(Config{Users: "ada:" + hashFor(t, "pw"), SecureCookies: true}, nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	_, err = a.Login(rr, "ada", "pw")
	require.NoError(t, err)
	assert.True(t, rr.Result().Cookies()[0].Secure)
}

func TestSessionExpiry(t *testing.T) {
	a := newTestAuth(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }
	c := loginCookie(t, a)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	assert.False(t, a.Principal(r).IsAnonymous())

	now = now.Add(DefaultSessionTTL)
	assert.True(t, a.Principal(r).IsAnonymous())
	assert.Equal(t, 0, a.CleanExpired())
}

func TestCleanExpired(t *testing.T) {
	a := newTestAuth(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }
	loginCookie(t, a)
	loginCookie(t, a)

	assert.Equal(t, 0, a.CleanExpired())
	now = now.Add(DefaultSessionTTL + time.Second)
	assert.Equal(t, 2, a.CleanExpired())
}

func TestMiddleware(t *testing.T) {
	a := newTestAuth(t)
	var seen core.Principal
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/log", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, LoginPath, rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(url.Values{}.Encode()))
	r.Header.Set("HX-Request", "true")
	h.ServeHTTP(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, LoginPath, rr.Header().Get("HX-Redirect"))

	rr = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(loginCookie(t, a))
	h.ServeHTTP(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, core.Principal("ada"), seen)
}

func TestPrincipalFromContext_Empty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, PrincipalFromContext(r.Context()).IsAnonymous())
}
