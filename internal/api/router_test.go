package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/api/handler"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/infrastructure/db/memory"
	"github.com/99minutos/account-service/internal/infrastructure/security"
)

func newTestServer(t *testing.T, checks map[string]handler.DependencyCheck) http.Handler {
	t.Helper()
	hasher := security.NewBcryptHasher(security.DefaultCost)
	tokens, err := security.NewJWTManager("router-test-secret")
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	accounts := service.NewAccountService(memory.NewUserRepository(hasher), hasher, tokens, nil, zerolog.Nop())

	return NewRouter(Deps{
		Accounts: accounts,
		Log:      zerolog.Nop(),
		Cookie:   handler.CookieConfig{Name: handler.DefaultSessionCookie},
		Checks:   checks,
		Registry: prometheus.NewRegistry(),
	})
}

func do(srv http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == handler.DefaultSessionCookie {
			return ck
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRouter_AccountLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodPost, "/api/users/register",
		`{"firstName":"Ana","email":"ana@example.com","password":"contraseña123"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	userID, _ := decode(t, rec)["userId"].(string)
	if userID == "" {
		t.Fatalf("register: missing userId")
	}

	rec = do(srv, http.MethodPost, "/api/users/register",
		`{"firstName":"Ana","email":"ANA@example.com","password":"otra123456"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", rec.Code)
	}

	rec = do(srv, http.MethodPost, "/api/users/login", `{"email":"ana@example.com","password":"contraseña123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	session := cookieFrom(t, rec)

	rec = do(srv, http.MethodGet, "/api/users/me", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user, _ := decode(t, rec)["user"].(map[string]any)
	if user["id"] != userID || user["email"] != "ana@example.com" || user["firstName"] != "Ana" {
		t.Fatalf("me: unexpected user %v", user)
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Fatalf("me: password hash leaked")
	}

	rec = do(srv, http.MethodPost, "/api/users/logout", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if cleared := cookieFrom(t, rec); cleared.Value != "" {
		t.Fatalf("logout: cookie not cleared")
	}

	rec = do(srv, http.MethodGet, "/api/users/me", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without cookie: expected 401, got %d", rec.Code)
	}
}

func TestRouter_BearerToken(t *testing.T) {
	srv := newTestServer(t, nil)
	do(srv, http.MethodPost, "/api/users/register", `{"firstName":"Luis","email":"luis@example.com","password":"secreto1"}`)

	rec := do(srv, http.MethodPost, "/api/users/login", `{"email":"luis@example.com","password":"secreto1"}`)
	token, _ := decode(t, rec)["token"].(string)
	if token == "" {
		t.Fatalf("login: missing token")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	out := httptest.NewRecorder()
	srv.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", out.Code)
	}
}

func TestRouter_LoginFailuresAreIndistinguishable(t *testing.T) {
	srv := newTestServer(t, nil)
	do(srv, http.MethodPost, "/api/users/register", `{"firstName":"Ana","email":"ana@example.com","password":"contraseña123"}`)

	wrong := do(srv, http.MethodPost, "/api/users/login", `{"email":"ana@example.com","password":"nope12"}`)
	unknown := do(srv, http.MethodPost, "/api/users/login", `{"email":"ghost@example.com","password":"contraseña123"}`)

	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d and %d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", wrong.Body.String(), unknown.Body.String())
	}
}

func TestRouter_ValidationError(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodPost, "/api/users/register", `{"firstName":"Ana","email":"ana@example.com","password":"123"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg, _ := decode(t, rec)["error"].(string); !strings.Contains(msg, "password") {
		t.Fatalf("expected password message, got %q", msg)
	}
}

func TestRouter_ForgedToken(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodGet, "/api/users/me", "", &http.Cookie{Name: "token", Value: "not.a.jwt"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg, _ := decode(t, rec)["error"].(string); msg != "invalid token" {
		t.Fatalf("expected invalid token, got %q", msg)
	}
}

func TestRouter_OpsEndpoints(t *testing.T) {
	srv := newTestServer(t, map[string]handler.DependencyCheck{
		"redis": func(context.Context) error { return errors.New("down") },
	})

	if rec := do(srv, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := do(srv, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: expected 503, got %d", rec.Code)
	}

	do(srv, http.MethodPost, "/api/users/login", `{"email":"x@example.com","password":"whatever"}`)
	rec := do(srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	for _, name := range []string{"http_requests_total", "accounts_logins_total"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Fatalf("metrics: %s not exposed", name)
		}
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRouter_PaddedEmailRoundTrip(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodPost, "/api/users/register",
		`{"firstName":"Ana","email":"  Ana@Example.com ","password":"contraseña123"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(srv, http.MethodPost, "/api/users/login", `{"email":"ana@example.com ","password":"contraseña123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_BearerWinsOverStaleCookie(t *testing.T) {
	srv := newTestServer(t, nil)
	do(srv, http.MethodPost, "/api/users/register", `{"firstName":"Luis","email":"luis@example.com","password":"secreto1"}`)
	rec := do(srv, http.MethodPost, "/api/users/login", `{"email":"luis@example.com","password":"secreto1"}`)
	token, _ := decode(t, rec)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "stale.garbage.value"})
	req.Header.Set("Authorization", "Bearer "+token)
	out := httptest.NewRecorder()
	srv.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", out.Code, out.Body.String())
	}
}
