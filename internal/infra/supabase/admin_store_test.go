package supabase_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/infra/resilience"
	"github.com/hartleydigital/portal-api/internal/infra/supabase"

	"go.uber.org/zap"
)

func newTestClient(upstream string) *supabase.Client {
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	return supabase.NewClient(&http.Client{Timeout: time.Second}, upstream, "", "anon-key", "service-key",
		resilience.NewCircuitBreaker("supabase-test"), cfg, zap.NewNop())
}

// TestGetLegacyCredential_ExactEmailMatch: the lookup must filter with an
// exact match on the lowercased address, so pattern characters in the
// input stay literal instead of acting as wildcards.
func TestGetLegacyCredential_ExactEmailMatch(t *testing.T) {
	var query url.Values
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/admin_users" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":"admin-1","auth_id":"","password_hash":"$2a$10$legacyhash"}]`)
	}))
	defer upstream.Close()

	client := newTestClient(upstream.URL)

	cred, err := client.GetLegacyCredential(context.Background(), domain.RealmAdmin, "  Ops%Team@Hartley.Digital ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cred == nil || cred.ProfileID != "admin-1" {
		t.Fatalf("expected the admin credential row, got %+v", cred)
	}

	if got := query.Get("email"); got != "eq.ops%team@hartley.digital" {
		t.Errorf("email filter must be eq. on the lowercased address, got %q", got)
	}
	if got := query.Get("is_active"); got != "eq.true" {
		t.Errorf("lookup must be restricted to active rows, got %q", got)
	}
}
