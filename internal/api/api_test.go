package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sregle/vtubot/internal/api"
	"github.com/sregle/vtubot/internal/catalog"
	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/testutil"
	"github.com/sregle/vtubot/internal/vprest"
)

func newTestServer(t *testing.T, opts ...api.Option) (*api.Server, *testutil.Fixture) {
	t.Helper()
	f := testutil.NewFixture(t)
	return api.NewServer(f.Engine, f.Store, f.Catalog, opts...), f
}

func postWebhook(t *testing.T, srv *api.Server, contentType, body string, header map[string]string) (*httptest.ResponseRecorder, models.WebhookResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var envelope models.WebhookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("response is not a reply envelope: %v\nbody: %s", err, rec.Body.String())
	}
	return rec, envelope
}

func replyText(t *testing.T, envelope models.WebhookResponse) string {
	t.Helper()
	if len(envelope.Data) != 1 {
		t.Fatalf("expected a single message in envelope, got %d", len(envelope.Data))
	}
	return envelope.Data[0].Message
}

func TestWebhookJSONMessage(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, envelope := postWebhook(t, srv, "application/json",
		`{"senderNumber":"2348100000001","senderMessage":"hello"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	if got := replyText(t, envelope); !strings.Contains(got, "Welcome to") {
		t.Errorf("expected welcome reply, got %q", got)
	}
}

func TestWebhookSenderAliases(t *testing.T) {
	srv, f := newTestServer(t)
	f.RegisterUser(t, "08031112222", "1234")

	// Two different alias keys for the same normalized sender must hit the
	// same session: the first message creates it, the second logs in.
	postWebhook(t, srv, "application/json",
		`{"from":"+2348100000001","text":"hi"}`, nil)
	_, envelope := postWebhook(t, srv, "application/json",
		`{"whatsapp":"2348100000001","body":"login 08031112222 1234"}`, nil)

	if got := replyText(t, envelope); !strings.Contains(got, "Welcome back") {
		t.Errorf("expected login across alias keys, got %q", got)
	}
}

func TestWebhookFormFallback(t *testing.T) {
	srv, _ := newTestServer(t)
	form := url.Values{}
	form.Set("senderPhone", "2348100000001")
	form.Set("message", "hello")

	rec, envelope := postWebhook(t, srv, "application/x-www-form-urlencoded", form.Encode(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := replyText(t, envelope); !strings.Contains(got, "Welcome to") {
		t.Errorf("expected welcome reply from form params, got %q", got)
	}
}

func TestWebhookNumericSenderValue(t *testing.T) {
	srv, _ := newTestServer(t)
	_, envelope := postWebhook(t, srv, "application/json",
		`{"senderNumber":2348100000001,"message":"hello"}`, nil)
	if got := replyText(t, envelope); !strings.Contains(got, "Welcome to") {
		t.Errorf("expected numeric sender to be accepted, got %q", got)
	}
}

func TestWebhookSenderNameFallback(t *testing.T) {
	srv, _ := newTestServer(t)
	_, envelope := postWebhook(t, srv, "application/json",
		`{"senderName":"Ada","message":"hello"}`, nil)
	if got := replyText(t, envelope); !strings.Contains(got, "Welcome to") {
		t.Errorf("expected senderName fallback to start a session, got %q", got)
	}
}

func TestWebhookKeyMismatchReturnsEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, api.WithWebhookKey("hook-secret"))
	rec, envelope := postWebhook(t, srv, "application/json",
		`{"from":"2348100000001","message":"hello"}`,
		map[string]string{"Authorization": "wrong"})

	// Auto-reply apps retry non-200s, so auth failures still answer 200.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on bad key, got %d", rec.Code)
	}
	if got := replyText(t, envelope); !strings.Contains(got, "Unauthorized") {
		t.Errorf("expected unauthorized notice, got %q", got)
	}
}

func TestWebhookKeyMatch(t *testing.T) {
	srv, _ := newTestServer(t, api.WithWebhookKey("hook-secret"))
	_, envelope := postWebhook(t, srv, "application/json",
		`{"from":"2348100000001","message":"hello"}`,
		map[string]string{"Authorization": "hook-secret"})
	if got := replyText(t, envelope); !strings.Contains(got, "Welcome to") {
		t.Errorf("expected normal handling with valid key, got %q", got)
	}
}

func TestWebhookRejectsGet(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("expected Allow: POST, got %q", allow)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("health response is not JSON: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", health["status"])
	}
	if _, ok := health["timestamp"]; !ok {
		t.Error("expected a timestamp field")
	}
}

func TestRefreshServicesRequiresAdminKey(t *testing.T) {
	srv, _ := newTestServer(t, api.WithAdminKey("admin-secret"))
	req := httptest.NewRequest(http.MethodPost, "/admin/refresh-services", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}
}

func TestRefreshServicesDisabledWithoutKey(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/refresh-services", nil)
	req.Header.Set("Authorization", "")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when no admin key is configured, got %d", rec.Code)
	}
}

func TestRefreshServicesCachesCatalog(t *testing.T) {
	f := testutil.NewFixture(t)
	f.Provider.SetPayload(map[string]interface{}{
		"data": []interface{}{
			map[string]interface{}{"id": 10, "name": "GLO CG 1GB", "amount": 450, "network": "glo"},
		},
	})

	client, err := vprest.NewClient(vprest.WithBaseURL(f.Provider.Server.URL))
	if err != nil {
		t.Fatalf("failed to create provider client: %v", err)
	}
	cat := catalog.NewProvider(f.Store, client,
		catalog.WithAdminCredential(models.Credential{ExternalID: "1", APIKey: "admin-key"}))
	srv := api.NewServer(f.Engine, f.Store, cat, api.WithAdminKey("admin-secret"))

	req := httptest.NewRequest(http.MethodPost, "/admin/refresh-services", nil)
	req.Header.Set("Authorization", "admin-secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cache, err := f.Store.GetServicesCache()
	if err != nil {
		t.Fatalf("GetServicesCache failed: %v", err)
	}
	if cache == nil || len(cache.Data) != 1 {
		t.Fatalf("expected one cached data plan, got %+v", cache)
	}
	if q := f.Provider.LastQuery(); q.Get("apikey") != "admin-key" {
		t.Errorf("expected admin credentials on the fetch, got %v", q)
	}
}

func TestRefreshServicesFailsWithoutAdminCredentials(t *testing.T) {
	srv, _ := newTestServer(t, api.WithAdminKey("admin-secret"))
	req := httptest.NewRequest(http.MethodPost, "/admin/refresh-services", nil)
	req.Header.Set("Authorization", "admin-secret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 without configured admin credentials, got %d", rec.Code)
	}
}
