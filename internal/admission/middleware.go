package admission

import "net/http"

// Middleware is a composable filter, the shape grounded on the pack's
// ipiton-alert-history-service rate_limit middleware chain.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares outer-to-inner in the given order. Per
// spec.md §4.5 the admission layer is applied backpressure -> rate-limit,
// so callers should pass Chain(backpressure.Middleware(...),
// rateLimiter.Middleware(...)).
func Chain(mws ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		h := final
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
