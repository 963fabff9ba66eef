// Package session implements the logout / revoke-all coordinator (C9).
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/gitdwsong72/auth-system/internal/apperror"
	"github.com/gitdwsong72/auth-system/internal/credential"
	"github.com/gitdwsong72/auth-system/internal/models"
	"github.com/gitdwsong72/auth-system/internal/registry"
	"github.com/gitdwsong72/auth-system/internal/repository"
)

type Coordinator struct {
	codec       *credential.Codec
	refreshRepo *repository.RefreshRepo
	registry    *registry.Registry
	accessTTL   time.Duration
}

func New(codec *credential.Codec, refreshRepo *repository.RefreshRepo, reg *registry.Registry, accessTTL time.Duration) *Coordinator {
	return &Coordinator{codec: codec, refreshRepo: refreshRepo, registry: reg, accessTTL: accessTTL}
}

// Logout blacklists the access credential's jti, removes it from the
// active set, and — if a refresh credential was supplied — idempotently
// revokes its row. The access credential is processed whether or not it
// has already expired, so a late logout call still clears the active set.
func (c *Coordinator) Logout(ctx context.Context, accessToken string, refreshToken *string) error {
	claims, err := c.codec.Decode(accessToken)
	if err != nil && err != credential.ErrExpired {
		return apperror.ErrInvalidToken
	}
	if claims == nil {
		return apperror.ErrInvalidToken
	}

	remaining := time.Until(time.Unix(claims.ExpiresAt, 0))
	if remaining < 0 {
		remaining = 0
	}
	ttl := remaining
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := c.registry.Blacklist(ctx, claims.JTI, ttl); err != nil {
		return apperror.ErrInternal.Wrap(err)
	}

	principalID, err := principalIDFromSubject(claims.Subject)
	if err == nil {
		if err := c.registry.RemoveFromActive(ctx, principalID, claims.JTI); err != nil {
			return apperror.ErrInternal.Wrap(err)
		}
	}

	if refreshToken != nil && *refreshToken != "" {
		hash := repository.HashToken(*refreshToken)
		if err := c.refreshRepo.RevokeByHash(ctx, hash); err != nil {
			return apperror.ErrInternal.Wrap(err)
		}
	}

	return nil
}

// RevokeAll implements spec.md §4.4 invariant 4: revoke every refresh
// record, read the active JTIs, pipeline blacklist writes for all of them,
// then clear the active set. A failure between the persistent revoke and
// the volatile cleanup is tolerated — the persistent side is already safe
// and the volatile steps are idempotent on retry.
func (c *Coordinator) RevokeAll(ctx context.Context, principalID int64) error {
	if _, err := c.refreshRepo.RevokeAllForPrincipal(ctx, principalID); err != nil {
		return apperror.ErrInternal.Wrap(err)
	}

	jtis, err := c.registry.ActiveJTIs(ctx, principalID)
	if err != nil {
		return apperror.ErrInternal.Wrap(err)
	}
	if err := c.registry.BlacklistAll(ctx, jtis, c.accessTTL); err != nil {
		return apperror.ErrInternal.Wrap(err)
	}
	return c.registry.ClearActive(ctx, principalID)
}

func principalIDFromSubject(sub string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(sub, "%d", &id)
	return id, err
}

// Sessions projects a principal's usable refresh records for
// GET /api/v1/auth/sessions, marking currentHash as the caller's own
// session when present among them.
func Sessions(records []models.RefreshRecord, currentHash string) []models.Session {
	out := make([]models.Session, 0, len(records))
	for _, r := range records {
		out = append(out, models.Session{
			ID:         r.ID,
			DeviceInfo: r.DeviceInfo,
			CreatedAt:  r.CreatedAt,
			ExpiresAt:  r.ExpiresAt,
			Current:    r.TokenHash == currentHash,
			RevokedAt:  r.RevokedAt,
		})
	}
	return out
}
