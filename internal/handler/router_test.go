package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/handler"
	"github.com/hartleydigital/portal-api/internal/infra/cache"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/service"

	"go.uber.org/zap"
)

func newTestRouter() http.Handler {
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	auth := service.NewAuthService(nil, nil, nil, cache.New[any](time.Minute),
		service.NewAuthBus(), "test-secret", metrics, logger)
	contact := service.NewContactService(nil, 5*time.Second, metrics, logger)

	svcs := &handler.Services{
		Auth:    auth,
		Contact: contact,
	}
	return handler.NewRouter(svcs, []string{"*"}, metrics, zap.NewNop())
}

func TestHealthz(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequestDurationRecorded(t *testing.T) {
	router := newTestRouter()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `portal_request_duration_seconds_count{operation="GET /healthz"}`) {
		t.Error("expected a duration sample for GET /healthz in the metrics exposition")
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	router := newTestRouter()

	paths := []string{
		"/v1/admin/clients",
		"/v1/admin/users",
		"/v1/admin/dashboard",
		"/v1/admin/metrics",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 without a token, got %d", path, rec.Code)
		}
	}
}

func TestPortalRoutesRequireAuth(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/portal/invoices", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestAuthSessionState(t *testing.T) {
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	auth := service.NewAuthService(nil, nil, nil, cache.New[any](time.Minute),
		service.NewAuthBus(), "test-secret", metrics, logger)

	adminSession := service.NewSessionContext[domain.AdminUser](domain.RealmAdmin, auth.CurrentAdmin, logger)
	clientSession := service.NewSessionContext[domain.ClientUser](domain.RealmClient, auth.CurrentClient, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adminSession.Start(ctx, auth.Bus(), "")
	clientSession.Start(ctx, auth.Bus(), "")

	svcs := &handler.Services{
		Auth:          auth,
		AdminSession:  adminSession,
		ClientSession: clientSession,
	}
	router := handler.NewRouter(svcs, []string{"*"}, metrics, logger)

	state := func() map[string]map[string]bool {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/auth/session", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var out map[string]map[string]bool
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		return out
	}

	// Both realms settle to anonymous after startup with no token.
	got := state()
	if got["admin"]["authenticated"] || got["admin"]["loading"] {
		t.Errorf("expected a settled anonymous admin session, got %+v", got["admin"])
	}
	if got["client"]["authenticated"] || got["client"]["loading"] {
		t.Errorf("expected a settled anonymous client session, got %+v", got["client"])
	}

	// An admin login flips only the admin realm.
	adminSession.SetAuthenticated(&domain.AdminUser{ID: "admin-1", Role: domain.RoleOwner}, "token-1")
	got = state()
	if !got["admin"]["authenticated"] {
		t.Error("expected the admin realm to be authenticated")
	}
	if got["client"]["authenticated"] {
		t.Error("client realm must be unaffected by an admin login")
	}
}

func TestContact_HoneypotRejected(t *testing.T) {
	router := newTestRouter()

	body := `{"name":"Bot","email":"bot@spam.example","message":"buy now","website":"https://spam.example"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for a honeypot hit, got %d", rec.Code)
	}
}

func TestContact_MalformedBody(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/contact", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}
