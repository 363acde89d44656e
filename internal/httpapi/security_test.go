package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(handler, http.MethodGet, "/healthz", "", nil)
	headers := map[string]string{
		"X-Content-Type-Options":      "nosniff",
		"X-Frame-Options":             "DENY",
		"Referrer-Policy":             "strict-origin-when-cross-origin",
		"Cross-Origin-Opener-Policy":  "same-origin",
		"Access-Control-Allow-Origin": "http://127.0.0.1:3000",
	}
	for key, want := range headers {
		if got := rec.Header().Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestPreflightRequestShortCircuits(t *testing.T) {
	handler, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Fatalf("Access-Control-Allow-Headers = %q", got)
	}
}

func TestLoginRateLimited(t *testing.T) {
	handler, _ := newTestAPI(t)

	body := `{"username":"admin","password":"wrong"}`
	var last int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.7:50123"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt status = %d, want 429", last)
	}
}

func TestLoginRateLimiterIsPerClient(t *testing.T) {
	handler, _ := newTestAPI(t)

	body := `{"username":"admin","password":"wrong"}`
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.7:50123"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.8:50123"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusTooManyRequests {
		t.Fatal("different client must not share the limiter bucket")
	}
}

func TestAttemptLimiterWindowExpires(t *testing.T) {
	limiter := newAttemptLimiter(2, 50*time.Millisecond)

	if !limiter.Allow("key") || !limiter.Allow("key") {
		t.Fatal("first two attempts should pass")
	}
	if limiter.Allow("key") {
		t.Fatal("third attempt inside window should be blocked")
	}
	time.Sleep(60 * time.Millisecond)
	if !limiter.Allow("key") {
		t.Fatal("attempt after window expiry should pass")
	}
}

func TestOversizedJSONBodyRejected(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashier := loginAs(t, handler, "cashier", "cashier-test-pw")

	big := strings.Repeat("x", (1<<20)+100)
	body := `{"name":"` + big + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/verisiye/customers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cashier)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(handler, http.MethodGet, "/api/products", "not-a-real-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
