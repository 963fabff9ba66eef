package handler

import (
	"net/http"

	"github.com/gitdwsong72/auth-system/internal/admission"
	"github.com/gitdwsong72/auth-system/internal/svc"
)

// exemptPaths bypasses both admission filters, per spec.md §4.5
// "Health/metrics routes are exempt from both filters."
var exemptPaths = map[string]bool{
	"/health":              true,
	"/.well-known/jwks.json": true,
}

// RegisterRoutes wires the endpoint table from spec.md §6 onto mux, with
// the admission layer applied in the mandated order: backpressure ->
// rate-limit.
func RegisterRoutes(mux *http.ServeMux, ctx *svc.ServiceContext) {
	chain := admission.Chain(
		ctx.Backpressure.Middleware(exemptPaths),
		ctx.RateLimiter.Middleware(exemptPaths),
	)

	register := func(path string, h http.HandlerFunc) {
		mux.Handle(path, chain(h))
	}

	register("/api/v1/auth/login", LoginHandler(ctx))
	register("/api/v1/auth/refresh", RefreshHandler(ctx))
	register("/api/v1/auth/logout", LogoutHandler(ctx))
	register("/api/v1/auth/verify", VerifyHandler(ctx))
	register("/api/v1/auth/introspect", IntrospectHandler(ctx))
	register("/api/v1/auth/sessions", sessionsDispatch(ctx))
	register("/.well-known/jwks.json", JWKSHandler(ctx))
	register("/health", HealthHandler(ctx))
}

func sessionsDispatch(ctx *svc.ServiceContext) http.HandlerFunc {
	get := SessionsGetHandler(ctx)
	del := SessionsDeleteHandler(ctx)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			get(w, r)
		case http.MethodDelete:
			del(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}
