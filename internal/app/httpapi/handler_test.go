package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	app "github.com/nine-apps/catalog_service/internal/app"
	"github.com/nine-apps/catalog_service/internal/middleware"
)

func newTestServer(t *testing.T) (http.Handler, *app.Application) {
	t.Helper()
	application, err := app.New(app.Stores{}, nil, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { _ = application.Stop(context.Background()) })

	h, err := NewHandler(application, Options{})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	authmw := middleware.NewAuthMiddleware(application.Auth, nil, nil)
	return authmw.OptionalHandler(h), application
}

func marshal(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body io.Reader) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Body.String(), "{") {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func registerAndLogin(t *testing.T, h http.Handler, email string) (userID, accessToken, refreshToken string) {
	t.Helper()
	rec, created := doJSON(t, h, http.MethodPost, "/users", "", marshal(t, map[string]any{
		"email":     email,
		"password":  "correct-horse",
		"firstname": "Test",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", rec.Code, rec.Body.String())
	}
	userID = created["id"].(string)

	rec, tokens := doJSON(t, h, http.MethodPost, "/auth/token", "", marshal(t, map[string]any{
		"email":    email,
		"password": "correct-horse",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", rec.Code, rec.Body.String())
	}
	return userID, tokens["access_token"].(string), tokens["refresh_token"].(string)
}

func TestRegisterResponseHidesCredentials(t *testing.T) {
	h, _ := newTestServer(t)

	rec, created := doJSON(t, h, http.MethodPost, "/users", "", marshal(t, map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if created["email"] != "alice@example.com" {
		t.Fatalf("unexpected body: %v", created)
	}
	body := rec.Body.String()
	for _, forbidden := range []string{"PasswordHash", "password_hash", "EID", "eid"} {
		if strings.Contains(body, forbidden) {
			t.Fatalf("response leaks %q: %s", forbidden, body)
		}
	}
}

func TestCatalogLifecycle(t *testing.T) {
	h, _ := newTestServer(t)
	_, aliceToken, _ := registerAndLogin(t, h, "alice@example.com")
	_, bobToken, _ := registerAndLogin(t, h, "bob@example.com")

	rec, created := doJSON(t, h, http.MethodPost, "/apps", aliceToken, marshal(t, map[string]any{
		"name":    "My Cool App",
		"version": "1.0",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create app: status %d: %s", rec.Code, rec.Body.String())
	}
	if created["Slug"] != "my-cool-app" {
		t.Fatalf("slug = %v, want my-cool-app", created["Slug"])
	}
	appID := created["ID"].(string)

	// Anonymous reads are allowed.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list apps: status %d", rec.Code)
	}

	// Owner updates; the slug follows the new name.
	rec, updated := doJSON(t, h, http.MethodPut, "/apps/"+appID, aliceToken, marshal(t, map[string]any{
		"name":    "Renamed App",
		"version": "2.0",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("update app: status %d: %s", rec.Code, rec.Body.String())
	}
	if updated["Slug"] != "renamed-app" {
		t.Fatalf("slug = %v, want renamed-app", updated["Slug"])
	}

	// Non-owner mutations are forbidden.
	rec, _ = doJSON(t, h, http.MethodPut, "/apps/"+appID, bobToken, marshal(t, map[string]any{
		"name": "Hijacked",
	}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("intruder update: status %d, want 403", rec.Code)
	}

	// Two saves mean two version snapshots, newest first.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps/"+appID+"/versions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("versions: status %d", rec.Code)
	}
	var versions []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &versions); err != nil {
		t.Fatalf("unmarshal versions: %v", err)
	}
	if len(versions) != 2 || versions[0]["Version"] != "2.0" {
		t.Fatalf("unexpected versions: %v", versions)
	}

	rec, current := doJSON(t, h, http.MethodGet, "/apps/"+appID+"/versions/current", "", nil)
	if rec.Code != http.StatusOK || current["Version"] != "2.0" {
		t.Fatalf("current version: status %d body %v", rec.Code, current)
	}

	// Likes toggle per user.
	rec, like := doJSON(t, h, http.MethodPost, "/apps/"+appID+"/like", bobToken, nil)
	if rec.Code != http.StatusOK || like["Count"] != float64(1) {
		t.Fatalf("like: status %d body %v", rec.Code, like)
	}
	rec, like = doJSON(t, h, http.MethodPost, "/apps/"+appID+"/like", bobToken, nil)
	if rec.Code != http.StatusOK || like["Count"] != float64(0) {
		t.Fatalf("unlike: status %d body %v", rec.Code, like)
	}

	// The timeline recorded the saves.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/timeline?category=LIST_APP&app_id="+appID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("timeline: status %d", rec.Code)
	}
	var events []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("timeline events = %d, want 2", len(events))
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/apps/"+appID, aliceToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
}

func TestMutationsRequireAuth(t *testing.T) {
	h, _ := newTestServer(t)

	rec, _ := doJSON(t, h, http.MethodPost, "/apps", "", marshal(t, map[string]any{"name": "X"}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create: status %d, want 401", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/apps", "garbage-token", marshal(t, map[string]any{"name": "X"}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", rec.Code)
	}
}

func TestVerifyEndpointErrors(t *testing.T) {
	h, _ := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodPost, "/users/verify", "", marshal(t, map[string]any{"code": "abc"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed code: status %d, want 400", rec.Code)
	}
	if body["kind"] != "invalid_request" {
		t.Fatalf("kind = %v, want invalid_request", body["kind"])
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/users/verify", "", marshal(t, map[string]any{"code": "deadbeef"}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown code: status %d, want 404", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/users/resend-registration-code", "", marshal(t, map[string]any{"email": "nobody@example.com"}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown email: status %d, want 404", rec.Code)
	}
}

func TestDuplicateRegistrationConflicts(t *testing.T) {
	h, _ := newTestServer(t)
	registerAndLogin(t, h, "alice@example.com")

	rec, body := doJSON(t, h, http.MethodPost, "/users", "", marshal(t, map[string]any{
		"email":    "Alice@Example.com",
		"password": "correct-horse",
	}))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: status %d, want 409", rec.Code)
	}
	if body["kind"] != "conflict" {
		t.Fatalf("kind = %v, want conflict", body["kind"])
	}
}

func TestMeAndTokenRotation(t *testing.T) {
	h, _ := newTestServer(t)
	userID, access, refresh := registerAndLogin(t, h, "alice@example.com")

	rec, me := doJSON(t, h, http.MethodGet, "/users/me", access, nil)
	if rec.Code != http.StatusOK || me["id"] != userID {
		t.Fatalf("me: status %d body %v", rec.Code, me)
	}

	rec, rotated := doJSON(t, h, http.MethodPost, "/auth/token", "", marshal(t, map[string]any{"refresh_token": refresh}))
	if rec.Code != http.StatusOK || rotated["access_token"] == "" {
		t.Fatalf("refresh: status %d", rec.Code)
	}

	// The old refresh token was revoked during rotation.
	rec, _ = doJSON(t, h, http.MethodPost, "/auth/token", "", marshal(t, map[string]any{"refresh_token": refresh}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reuse revoked refresh: status %d, want 401", rec.Code)
	}

	newRefresh := rotated["refresh_token"].(string)
	rec, _ = doJSON(t, h, http.MethodPost, "/auth/logout", "", marshal(t, map[string]any{"refresh_token": newRefresh}))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d, want 204", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodPost, "/auth/token", "", marshal(t, map[string]any{"refresh_token": newRefresh}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: status %d, want 401", rec.Code)
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	h, _ := newTestServer(t)
	userID, token, _ := registerAndLogin(t, h, "alice@example.com")

	rec, created := doJSON(t, h, http.MethodPost, "/feedback", token, marshal(t, map[string]any{
		"title": "Dark Mode Please",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", rec.Code, rec.Body.String())
	}
	if created["Slug"] != "dark-mode-please" {
		t.Fatalf("slug = %v", created["Slug"])
	}
	fbID := created["ID"].(string)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/"+userID+"/feedback", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("per-user feedback: status %d", rec.Code)
	}
	var entries []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}

	rec, _ = doJSON(t, h, http.MethodDelete, "/feedback/"+fbID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
}

func TestAuditLogCapturesRequests(t *testing.T) {
	h, _ := newTestServer(t)
	_, token, _ := registerAndLogin(t, h, "alice@example.com")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: status %d", rec.Code)
	}

	// Anonymous access to the audit log is rejected.
	rec, _ = doJSON(t, h, http.MethodGet, "/audit", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous audit: status %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/audit?limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit: status %d", rec.Code)
	}
	var auditEntries []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &auditEntries); err != nil {
		t.Fatalf("unmarshal audit: %v", err)
	}
	if len(auditEntries) == 0 {
		t.Fatal("audit log should not be empty")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("metrics output should not be empty")
	}
}
