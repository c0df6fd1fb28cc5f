package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nuitap/nuitap/internal/config"
	"github.com/nuitap/nuitap/internal/model"
)

const testPIN = "4321"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.Log.Dir = t.TempDir()
	cfg.Auth.PIN = testPIN
	return New(cfg, zerolog.Nop())
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	return rec
}

func authCookie(srv *Server) *http.Cookie {
	return &http.Cookie{Name: srv.Config.Auth.CookieName, Value: testPIN}
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestIngestAndTail(t *testing.T) {
	srv := newTestServer(t)

	res := do(srv, postJSON("/log", `{"server":"srv1","resource":"foo","type":"console","data":"hi"}`))
	if res.Code != http.StatusOK {
		t.Fatalf("ingest: expected 200, got %d: %s", res.Code, res.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/logs?server=srv1&resource=foo", nil)
	req.AddCookie(authCookie(srv))
	res = do(srv, req)
	if res.Code != http.StatusOK {
		t.Fatalf("tail: expected 200, got %d", res.Code)
	}
	var records []model.Record
	if err := json.Unmarshal(res.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode tail: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["data"] != "hi" {
		t.Fatalf("payload changed: %v", records[0])
	}
	if records[0]["timestamp"] == nil {
		t.Fatal("expected server-assigned timestamp")
	}
}

func TestIngestRequiresResource(t *testing.T) {
	srv := newTestServer(t)
	res := do(srv, postJSON("/log", `{"type":"console","data":"orphan"}`))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("expected error detail, got %s", res.Body.String())
	}
}

func TestIngestInferenceOverridesDeclaredResource(t *testing.T) {
	srv := newTestServer(t)

	res := do(srv, postJSON("/log", `{"resource":"declared","type":"fetch_call","url":"https://myresource/api/ping"}`))
	if res.Code != http.StatusOK {
		t.Fatalf("ingest: expected 200, got %d", res.Code)
	}

	records, err := srv.Store.Tail("", "myresource", 0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected record under inferred resource, got %d", len(records))
	}

	declared, err := srv.Store.Tail("", "declared", 0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(declared) != 0 {
		t.Fatalf("expected nothing under declared name, got %d", len(declared))
	}
}

func TestQueryListsServersAndResources(t *testing.T) {
	srv := newTestServer(t)
	do(srv, postJSON("/log", `{"server":"srv1","resource":"foo","type":"console"}`))
	do(srv, postJSON("/log", `{"server":"srv1","resource":"bar","type":"console"}`))

	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	req.AddCookie(authCookie(srv))
	res := do(srv, req)
	if res.Code != http.StatusOK {
		t.Fatalf("list servers: expected 200, got %d", res.Code)
	}
	var servers []string
	if err := json.Unmarshal(res.Body.Bytes(), &servers); err != nil {
		t.Fatalf("decode servers: %v", err)
	}
	if len(servers) != 1 || servers[0] != "srv1" {
		t.Fatalf("expected [srv1], got %v", servers)
	}

	req = httptest.NewRequest(http.MethodGet, "/logs?server=srv1", nil)
	req.AddCookie(authCookie(srv))
	res = do(srv, req)
	var resources []string
	if err := json.Unmarshal(res.Body.Bytes(), &resources); err != nil {
		t.Fatalf("decode resources: %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources, got %v", resources)
	}
}

func TestQueryWithoutCookieRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t)
	do(srv, postJSON("/log", `{"server":"srv1","resource":"foo","type":"console","data":"secret"}`))

	res := do(srv, httptest.NewRequest(http.MethodGet, "/logs?server=srv1&resource=foo", nil))
	if res.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
	if strings.Contains(res.Body.String(), "secret") {
		t.Fatal("log data leaked to unauthenticated request")
	}
}

func TestQueryWithWrongCookieRedirects(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	req.AddCookie(&http.Cookie{Name: srv.Config.Auth.CookieName, Value: "guess"})
	res := do(srv, req)
	if res.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", res.Code)
	}
}

func TestClear(t *testing.T) {
	srv := newTestServer(t)
	do(srv, postJSON("/log", `{"server":"srv1","resource":"foo","type":"console"}`))

	req := postJSON("/clear", `{"server":"srv1","resource":"foo"}`)
	req.AddCookie(authCookie(srv))
	res := do(srv, req)
	if res.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d: %s", res.Code, res.Body.String())
	}

	records, err := srv.Store.Tail("srv1", "foo", 0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty log after clear, got %d", len(records))
	}
}

func TestClearMissingLogIs404(t *testing.T) {
	srv := newTestServer(t)
	req := postJSON("/clear", `{"server":"srv1","resource":"never"}`)
	req.AddCookie(authCookie(srv))
	res := do(srv, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] == "" {
		t.Fatalf("expected message body, got %s", res.Body.String())
	}
}

func TestClearRequiresResource(t *testing.T) {
	srv := newTestServer(t)
	req := postJSON("/clear", `{"server":"srv1"}`)
	req.AddCookie(authCookie(srv))
	res := do(srv, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t)
	res := do(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "running" {
		t.Fatalf("expected status running, got %v", body["status"])
	}
	if body["logDirectory"] != srv.Config.Log.Dir {
		t.Fatalf("expected log directory %q, got %v", srv.Config.Log.Dir, body["logDirectory"])
	}
}

func TestLoginFlow(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{"pin": {testPIN}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := do(srv, req)
	if res.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/view" {
		t.Fatalf("expected redirect to /view, got %q", loc)
	}

	var session *http.Cookie
	for _, c := range res.Result().Cookies() {
		if c.Name == srv.Config.Auth.CookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatal("expected auth cookie to be set")
	}
	if !session.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}

	req = httptest.NewRequest(http.MethodGet, "/view", nil)
	req.AddCookie(session)
	res = do(srv, req)
	if res.Code != http.StatusOK {
		t.Fatalf("viewer after login: expected 200, got %d", res.Code)
	}
}

func TestLoginRejectsWrongPIN(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{"pin": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := do(srv, req)
	if res.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect back to /login, got %q", loc)
	}
	for _, c := range res.Result().Cookies() {
		if c.Name == srv.Config.Auth.CookieName {
			t.Fatal("cookie set despite wrong PIN")
		}
	}
}

func TestRootRedirectsToViewer(t *testing.T) {
	srv := newTestServer(t)
	res := do(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if res.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/view" {
		t.Fatalf("expected redirect to /view, got %q", loc)
	}
}
