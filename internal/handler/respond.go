// Package handler implements the HTTP boundary named in spec.md §6: it
// parses requests, invokes the coordinators, and renders the canonical
// error envelope. Routing beyond this endpoint table is out of scope.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gitdwsong72/auth-system/internal/apperror"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, body any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": body, "error": nil})
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// writeError renders the canonical envelope. Coordinators never leak
// internal error messages — apperror.As defaults any unmapped error to the
// generic 500 code so nothing but a safe message crosses the boundary.
func writeError(w http.ResponseWriter, err error) {
	ae := apperror.As(err)
	writeJSON(w, ae.Status, ae.Envelope())
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", false
	}
	return h[len(prefix):], true
}
