package admission

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gitdwsong72/auth-system/internal/config"
)

func TestBackpressureRejectsOverload(t *testing.T) {
	b := NewBackpressure(config.BackpressureConfig{MaxConcurrent: 0, QueueCapacity: 0, WaitTimeoutSec: 1})
	result, _, _ := b.acquire(b.waitTimeout)
	if result != admitOverload {
		t.Fatalf("acquire() = %v, want admitOverload", result)
	}
}

func TestBackpressureRejectsQueueFull(t *testing.T) {
	b := NewBackpressure(config.BackpressureConfig{MaxConcurrent: 1, QueueCapacity: 0, WaitTimeoutSec: 1})
	result, _, _ := b.acquire(b.waitTimeout)
	if result != admitQueueFull {
		t.Fatalf("acquire() = %v, want admitQueueFull", result)
	}
}

func TestBackpressureAdmitsThenTimesOut(t *testing.T) {
	b := NewBackpressure(config.BackpressureConfig{MaxConcurrent: 1, QueueCapacity: 1, WaitTimeoutSec: 0})

	first, release, _ := b.acquire(b.waitTimeout)
	if first != admitOK {
		t.Fatalf("first acquire() = %v, want admitOK", first)
	}
	defer release()

	second, _, _ := b.acquire(b.waitTimeout)
	if second != admitTimeout {
		t.Fatalf("second acquire() = %v, want admitTimeout", second)
	}
}

func TestBackpressureStatusHealthBands(t *testing.T) {
	b := NewBackpressure(config.BackpressureConfig{MaxConcurrent: 10, QueueCapacity: 0, WaitTimeoutSec: 1})
	if got := b.Status().Health; got != "healthy" {
		t.Fatalf("idle health = %q, want healthy", got)
	}
}

func TestBackpressureMiddlewareShedsWithRetryAfter(t *testing.T) {
	b := NewBackpressure(config.BackpressureConfig{MaxConcurrent: 0, QueueCapacity: 0, WaitTimeoutSec: 1})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run when the request is shed")
	})
	mw := b.Middleware(map[string]bool{})(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "5" {
		t.Errorf("Retry-After = %q, want 5", rec.Header().Get("Retry-After"))
	}
}

func TestBackpressureMiddlewareExemptsHealth(t *testing.T) {
	b := NewBackpressure(config.BackpressureConfig{MaxConcurrent: 0, QueueCapacity: 0, WaitTimeoutSec: 1})
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	mw := b.Middleware(map[string]bool{"/health": true})(next)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if !called {
		t.Error("exempt path should bypass backpressure")
	}
}
