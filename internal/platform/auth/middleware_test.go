package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newAuthedServer(t *testing.T) (*echo.Echo, *SessionIssuer, TokenStore) {
	t.Helper()
	e := echo.New()
	issuer := NewSessionIssuer("test-secret", time.Hour)
	store := NewInMemoryTokenStore()
	e.Use(Middleware(issuer, NewVerifier(store)))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c).String())
	})
	return e, issuer, store
}

func TestMiddleware_BearerSession(t *testing.T) {
	e, issuer, _ := newAuthedServer(t)
	userID := uuid.New()
	token, err := issuer.Issue(userID, "pharmacist", "main")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != userID.String() {
		t.Errorf("expected user id %s in context, got %s", userID, rec.Body.String())
	}
}

func TestMiddleware_APIToken(t *testing.T) {
	e, _, store := newAuthedServer(t)
	raw, tok := storeToken(t, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-API-Token", raw)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != tok.UserID.String() {
		t.Errorf("expected token owner in context, got %s", rec.Body.String())
	}
}

func TestMiddleware_MissingCredentials(t *testing.T) {
	e, _, _ := newAuthedServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_BadAPIToken(t *testing.T) {
	e, _, _ := newAuthedServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-API-Token", "bogus")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := RequireRole("finance")

	cases := []struct {
		role string
		want int
	}{
		{"finance", http.StatusOK},
		{"admin", http.StatusOK}, // admin passes every role gate
		{"pharmacist", http.StatusForbidden},
		{"", http.StatusForbidden},
	}

	e := echo.New()
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(ContextRole, tc.role)

		err := mw(handler)(c)
		code := rec.Code
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		if code != tc.want {
			t.Errorf("role %q: expected %d, got %d", tc.role, tc.want, code)
		}
	}
}

func TestRequireWriteScope(t *testing.T) {
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := RequireWriteScope()
	e := echo.New()

	for _, scope := range []string{ScopeWrite, ScopeReadWrite, ScopeAdmin} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(ContextScope, scope)
		if err := mw(handler)(c); err != nil {
			t.Errorf("scope %s: unexpected error %v", scope, err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextScope, ScopeRead)
	err := mw(handler)(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 for read scope, got %v", err)
	}
}

func TestDevMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(DevMiddleware())
	e.GET("/whoami", func(c echo.Context) error {
		role, _ := c.Get(ContextRole).(string)
		return c.String(http.StatusOK, role)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "admin" {
		t.Errorf("expected dev admin identity, got %d %q", rec.Code, rec.Body.String())
	}
}
