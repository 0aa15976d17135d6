package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Simplici0/costworks/internal/costing"
	"github.com/Simplici0/costworks/internal/db"
	"github.com/Simplici0/costworks/internal/migrations"
	"github.com/Simplici0/costworks/internal/seed"
	"github.com/Simplici0/costworks/internal/store"
)

const (
	testEmail    = "admin@costworks.test"
	testPassword = "s3cret"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *server {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Up(database))
	_, err = seed.Run(database, seed.Config{AdminEmail: testEmail, AdminPassword: testPassword})
	require.NoError(t, err)

	srv, err := newServer(store.New(database), zap.NewNop(), serverOptions{
		SessionSecret: "test-secret",
		MCWorkers:     2,
		MaxIterations: 1000,
	})
	require.NoError(t, err)
	srv.now = func() time.Time { return testNow }
	srv.auth.now = func() time.Time { return testNow }
	return srv
}

// do sends an authenticated request through the full router.
func do(t *testing.T, srv *server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: srv.auth.createSessionValue(testEmail)})
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthzIsPublic(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestMetricsIsPublic(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
}

func TestAuthMiddleware_APIReturns401(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader("{}")))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}
}

func TestAuthMiddleware_PagesRedirectToLogin(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/", "/calculations", "/admin/rates"} {
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s: status=%d, want 303", path, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Fatalf("%s: location=%q", path, loc)
		}
	}
}

func TestStaticIsPublic(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", badRequest("nope"), http.StatusBadRequest},
		{"unprocessable", unprocessable("nope"), http.StatusUnprocessableEntity},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"invalid monte carlo params", fmt.Errorf("scenario x: %w", costing.ErrInvalidParams), http.StatusUnprocessableEntity},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Fatalf("statusFor=%d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteJSON_NonFiniteBecomes422(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"v": math.Inf(1)})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rec.Code)
	}
}
