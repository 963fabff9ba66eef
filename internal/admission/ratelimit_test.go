package admission

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gitdwsong72/auth-system/internal/config"
	"github.com/gitdwsong72/auth-system/internal/volatilestore"
)

func TestRateLimiterAllowsUpToLimitThenRejects(t *testing.T) {
	buckets := map[string]config.Bucket{
		"/api/v1/auth/login": {MaxRequests: 2, WindowSecs: 60},
	}
	rl := NewRateLimiter(volatilestore.NewMemoryStore(), buckets)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.Allow(ctx, "1.2.3.4", "/api/v1/auth/login")
		if err != nil || !allowed {
			t.Fatalf("request %d: allowed=%v err=%v, want true, nil", i, allowed, err)
		}
	}
	allowed, bucket, err := rl.Allow(ctx, "1.2.3.4", "/api/v1/auth/login")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("third request should have been rejected")
	}
	if bucket.MaxRequests != 2 {
		t.Errorf("bucket.MaxRequests = %d, want 2", bucket.MaxRequests)
	}
}

func TestRateLimiterBucketPrecedence(t *testing.T) {
	rl := NewRateLimiter(volatilestore.NewMemoryStore(), config.DefaultBuckets())

	name, _ := rl.bucketFor("/api/v1/auth/login")
	if name != "/api/v1/auth/login" {
		t.Errorf("exact match bucket = %q, want /api/v1/auth/login", name)
	}

	name, _ = rl.bucketFor("/api/v1/something/else")
	if name != "/api/v1/*" {
		t.Errorf("prefix-match bucket = %q, want /api/v1/*", name)
	}

	name, _ = rl.bucketFor("/totally/unmatched")
	if name != "*" {
		t.Errorf("fallback bucket = %q, want *", name)
	}
}

func TestRateLimiterFailsClosedOnStoreError(t *testing.T) {
	store := volatilestore.NewMemoryStore()
	store.SetFailing(true)
	rl := NewRateLimiter(store, config.DefaultBuckets())

	allowed, _, err := rl.Allow(context.Background(), "1.2.3.4", "/api/v1/auth/login")
	if err == nil {
		t.Fatal("expected a store error")
	}
	if allowed {
		t.Fatal("must not admit the request when the store is unavailable")
	}
}

func TestRateLimiterMiddlewareExemptsHealthAndOptions(t *testing.T) {
	rl := NewRateLimiter(volatilestore.NewMemoryStore(), map[string]config.Bucket{
		"*": {MaxRequests: 0, WindowSecs: 60},
	})
	exempt := map[string]bool{"/health": true}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	mw := rl.Middleware(exempt)(next)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	if !called {
		t.Error("exempt path should bypass the rate limiter")
	}

	called = false
	req = httptest.NewRequest(http.MethodOptions, "/anything", nil)
	rec = httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	if !called {
		t.Error("OPTIONS should bypass the rate limiter")
	}
}

func TestRateLimiterMiddlewareRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(volatilestore.NewMemoryStore(), map[string]config.Bucket{
		"*": {MaxRequests: 0, WindowSecs: 60},
	})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached once the bucket is exhausted")
	})
	mw := rl.Middleware(map[string]bool{})(next)

	req := httptest.NewRequest(http.MethodGet, "/unbucketed", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header")
	}
}
