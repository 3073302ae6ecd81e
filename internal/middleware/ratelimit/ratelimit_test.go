package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestAllowBurstThenRefill(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 3, Now: clock.Now}, nil)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("a") {
		t.Fatal("fourth request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients have their own bucket")
	}

	clock.t = clock.t.Add(20 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("one token should have refilled after 20s")
	}
}

func TestCleanupRemovesIdleClients(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 10, IdleTTL: time.Minute, Now: clock.Now}, nil)
	defer rl.Stop()

	rl.Allow("a")
	clock.t = clock.t.Add(30 * time.Second)
	rl.Allow("b")
	clock.t = clock.t.Add(45 * time.Second)

	if n := rl.Cleanup(); n != 1 {
		t.Fatalf("Cleanup() = %d, want 1", n)
	}
	if n := rl.ActiveClients(); n != 1 {
		t.Fatalf("ActiveClients() = %d, want 1", n)
	}
}

func TestMiddlewareOnlyLimitsPOST(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1}, nil)
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(method string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/expenses", nil))
		return rec.Code
	}

	if code := serve(http.MethodPost); code != http.StatusNoContent {
		t.Fatalf("first POST = %d", code)
	}
	if code := serve(http.MethodPost); code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", code)
	}
	for i := 0; i < 5; i++ {
		if code := serve(http.MethodGet); code != http.StatusNoContent {
			t.Fatalf("GET = %d", code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expenses", nil))
	if rec.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After header")
	}
}
