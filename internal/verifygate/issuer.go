package verifygate

import (
	"context"
	"errors"
	"strconv"

	"github.com/gitdwsong72/auth-system/internal/credential"
	"github.com/gitdwsong72/auth-system/internal/registry"
	"github.com/gitdwsong72/auth-system/internal/repository"
	"github.com/gitdwsong72/auth-system/internal/types"
)

// IssuerGate performs the full check only the issuer (or a sidecar with
// direct volatile-store access) is positioned to do: signature ->
// active-set -> blacklist. It does not look the principal up. It backs both
// POST /api/v1/auth/verify and POST /api/v1/auth/introspect.
type IssuerGate struct {
	codec      *credential.Codec
	registry   *registry.Registry
	principals *repository.PrincipalRepo
}

func NewIssuerGate(codec *credential.Codec, reg *registry.Registry, principals *repository.PrincipalRepo) *IssuerGate {
	return &IssuerGate{codec: codec, registry: reg, principals: principals}
}

var ErrNotActive = errors.New("verifygate: credential not active")

// Introspect returns the full {active, user_id, email, roles, permissions,
// exp} projection, per spec.md's remote-mode contract.
func (g *IssuerGate) Introspect(ctx context.Context, token string) (*types.IntrospectResponse, error) {
	claims, err := g.codec.Decode(token)
	if err != nil {
		return &types.IntrospectResponse{Active: false}, nil
	}
	if claims.Type != credential.TypeAccess {
		return &types.IntrospectResponse{Active: false}, nil
	}

	principalID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return &types.IntrospectResponse{Active: false}, nil
	}

	// Active-set membership is the cheap, decisive signal; the blacklist
	// is consulted defensively afterward (spec.md §4.4 invariant 1).
	active, err := g.registry.IsActive(ctx, principalID, claims.JTI)
	if err != nil {
		return nil, err
	}
	if !active {
		return &types.IntrospectResponse{Active: false}, nil
	}
	blacklisted, err := g.registry.IsBlacklisted(ctx, claims.JTI)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return &types.IntrospectResponse{Active: false}, nil
	}

	return &types.IntrospectResponse{
		Active:      true,
		UserID:      claims.Subject,
		Email:       claims.Email,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

// Verify is the same check as Introspect but returns the error form
// verify() uses at the HTTP boundary and omits exp.
func (g *IssuerGate) Verify(ctx context.Context, token string) (*types.VerifyResponse, error) {
	res, err := g.Introspect(ctx, token)
	if err != nil {
		return nil, err
	}
	if !res.Active {
		return nil, ErrNotActive
	}
	return &types.VerifyResponse{
		Subject:     res.UserID,
		Email:       res.Email,
		Roles:       res.Roles,
		Permissions: res.Permissions,
	}, nil
}
