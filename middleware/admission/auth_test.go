package admission

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"

	"github.com/rs/zerolog"
)

func authChain(t *testing.T, next http.Handler) http.Handler {
	t.Helper()
	store := infra.NewMemoryTenantStore(domain.Tenant{
		ID: "acme", Name: "Acme", APIKey: "secret", Origin: "http://acme.internal",
	})
	return Authenticate(store, zerolog.Nop())(next)
}

func TestAuthenticate_MissingKey(t *testing.T) {
	h := authChain(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next should not be called")
	}))

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != "Missing API Key" {
		t.Fatalf("expected Missing API Key error, got %q", body["error"])
	}
}

func TestAuthenticate_UnknownKey(t *testing.T) {
	h := authChain(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next should not be called")
	}))

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.Header.Set("x-api-key", "wrong")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != "Invalid API Key" {
		t.Fatalf("expected Invalid API Key error, got %q", body["error"])
	}
}

func TestAuthenticate_ValidKeyInjectsTenant(t *testing.T) {
	var seen domain.Tenant
	h := authChain(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.Header.Set("x-api-key", "secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen.ID != "acme" || seen.Origin != "http://acme.internal" {
		t.Fatalf("expected tenant in context, got %+v", seen)
	}
}
