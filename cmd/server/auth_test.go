package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionValueRoundTrip(t *testing.T) {
	a := newAuthService(nil, "secret", false)
	a.now = func() time.Time { return testNow }

	email, ok := a.verifySessionValue(a.createSessionValue("a@b.c"))
	require.True(t, ok)
	assert.Equal(t, "a@b.c", email)
}

func TestSessionValueRejectsTampering(t *testing.T) {
	a := newAuthService(nil, "secret", false)
	a.now = func() time.Time { return testNow }
	value := a.createSessionValue("a@b.c")

	other := newAuthService(nil, "other-secret", false)
	other.now = a.now
	_, ok := other.verifySessionValue(value)
	assert.False(t, ok, "different secret")

	_, ok = a.verifySessionValue(value + "00")
	assert.False(t, ok, "modified signature")

	_, ok = a.verifySessionValue("garbage")
	assert.False(t, ok, "no signature")
}

func TestSessionValueExpires(t *testing.T) {
	a := newAuthService(nil, "secret", false)
	a.now = func() time.Time { return testNow }
	value := a.createSessionValue("a@b.c")

	a.now = func() time.Time { return testNow.Add(sessionTTL + time.Minute) }
	_, ok := a.verifySessionValue(value)
	assert.False(t, ok)
}

func TestValidateCredentials(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	ok, err := srv.auth.validateCredentials(ctx, testEmail, testPassword)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = srv.auth.validateCredentials(ctx, testEmail, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = srv.auth.validateCredentials(ctx, "nobody@costworks.test", testPassword)
	require.NoError(t, err)
	assert.False(t, ok)
}

func postForm(srv *server, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	return rec
}

func TestLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := postForm(srv, "/login", url.Values{"email": {testEmail}, "password": {"wrong"}}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")

	rec = postForm(srv, "/login", url.Values{"email": {testEmail}, "password": {testPassword}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(session)
	home := httptest.NewRecorder()
	srv.routes().ServeHTTP(home, req)
	assert.Equal(t, http.StatusOK, home.Code)

	out := postForm(srv, "/logout", url.Values{}, session)
	require.Equal(t, http.StatusSeeOther, out.Code)
	assert.Equal(t, "/login", out.Header().Get("Location"))
}

func TestLoginFormRedirectsWhenSignedIn(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}
