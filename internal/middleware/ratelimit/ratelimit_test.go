package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("fourth request in the window should be refused")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other clients have their own budget")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("a new window should reset the budget")
	}
}

func TestLimiter_Sweep(t *testing.T) {
	now := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 10, IdleAfter: 5 * time.Minute})
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(4 * time.Minute)
	rl.Allow("b")
	now = now.Add(2 * time.Minute)

	if n := rl.Sweep(); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients = %d, want 1", rl.ActiveClients())
	}
}

func TestMiddleware_OnlyWrites(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	h := rl.Middleware(func(*http.Request) string { return "1.2.3.4" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/weeks/1/entries", nil))
		return rr.Code
	}

	for i := 0; i < 5; i++ {
		if code := do(http.MethodGet); code != http.StatusNoContent {
			t.Fatalf("GET %d: status %d", i, code)
		}
	}
	if code := do(http.MethodPut); code != http.StatusNoContent {
		t.Fatalf("first PUT: status %d", code)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/weeks/1/entries", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second PUT: status %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After header")
	}
}
