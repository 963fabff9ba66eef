// Package verifygate implements the verification gate (C10): per-request
// credential validation for downstream consumers, in local (JWKS-cached)
// and remote (introspection) modes. Its shape mirrors what an extracted
// client SDK would expose — downstream services import this the way the
// original's auth_sdk package is imported by every other service.
package verifygate

import (
	"context"

	"github.com/gitdwsong72/auth-system/internal/types"
)

// Verifier is the interface both modes satisfy.
type Verifier interface {
	Verify(ctx context.Context, token string) (*types.VerifyResponse, error)
}
