package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gitdwsong72/auth-system/internal/apperror"
	"github.com/gitdwsong72/auth-system/internal/config"
	"github.com/gitdwsong72/auth-system/internal/volatilestore"
)

// RateLimiter is a fixed-window counter per (client_id, route-bucket),
// keyed "rate_limit:{client}:{bucket}". OPTIONS requests bypass the filter
// (CORS preflight).
type RateLimiter struct {
	store   volatilestore.Store
	buckets map[string]config.Bucket
}

func NewRateLimiter(store volatilestore.Store, buckets map[string]config.Bucket) *RateLimiter {
	if len(buckets) == 0 {
		buckets = config.DefaultBuckets()
	}
	return &RateLimiter{store: store, buckets: buckets}
}

func (rl *RateLimiter) bucketFor(path string) (string, config.Bucket) {
	if b, ok := rl.buckets[path]; ok {
		return path, b
	}
	if b, ok := rl.buckets["/api/v1/*"]; ok {
		if len(path) >= 8 && path[:8] == "/api/v1/" {
			return "/api/v1/*", b
		}
	}
	if b, ok := rl.buckets["*"]; ok {
		return "*", b
	}
	return "*", config.Bucket{MaxRequests: 1000, WindowSecs: 60}
}

// Allow increments the window counter and reports whether the request is
// admitted, along with the bucket applied (for headers/Retry-After). On a
// store failure the limiter fails closed — treats the request as exceeding
// the limit — per spec.md §7 "fail closed on rate limiting".
func (rl *RateLimiter) Allow(ctx context.Context, clientID, path string) (bool, config.Bucket, error) {
	name, bucket := rl.bucketFor(path)
	key := fmt.Sprintf("rate_limit:%s:%s", clientID, name)
	window := time.Duration(bucket.WindowSecs) * time.Second

	count, err := rl.store.IncrWithInitialTTL(ctx, key, window)
	if err != nil {
		return false, bucket, err
	}
	return count <= int64(bucket.MaxRequests), bucket, nil
}

// Middleware wraps next with the rate-limit filter. exemptPaths (health,
// metrics) bypass both admission filters per spec.md §4.5.
func (rl *RateLimiter) Middleware(exemptPaths map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			clientID := ClientIP(r)
			allowed, bucket, err := rl.Allow(r.Context(), clientID, r.URL.Path)
			if err != nil || !allowed {
				writeRateLimited(w, bucket)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, bucket config.Bucket) {
	w.Header().Set("Retry-After", strconv.Itoa(bucket.WindowSecs))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(bucket.MaxRequests))
	w.Header().Set("X-RateLimit-Window", strconv.Itoa(bucket.WindowSecs))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	body := apperror.RateLimitEnvelope{
		ErrorCode: apperror.CodeRateLimited,
		Message:   "rate limit exceeded",
	}
	_ = json.NewEncoder(w).Encode(body)
}
