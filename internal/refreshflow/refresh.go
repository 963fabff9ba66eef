// Package refreshflow implements the refresh coordinator (C8): decode,
// look up, rotate, and re-issue, with at-most-once rotation guaranteed by
// the row lock the revocation UPDATE takes.
package refreshflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gitdwsong72/auth-system/internal/apperror"
	"github.com/gitdwsong72/auth-system/internal/credential"
	"github.com/gitdwsong72/auth-system/internal/login"
	"github.com/gitdwsong72/auth-system/internal/registry"
	"github.com/gitdwsong72/auth-system/internal/repository"
)

type Coordinator struct {
	repo        *repository.Repository
	principals  *repository.PrincipalRepo
	refreshRepo *repository.RefreshRepo
	registry    *registry.Registry
	codec       *credential.Codec
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func New(
	repo *repository.Repository,
	principals *repository.PrincipalRepo,
	refreshRepo *repository.RefreshRepo,
	reg *registry.Registry,
	codec *credential.Codec,
	accessTTL, refreshTTL time.Duration,
) *Coordinator {
	return &Coordinator{
		repo: repo, principals: principals, refreshRepo: refreshRepo,
		registry: reg, codec: codec, accessTTL: accessTTL, refreshTTL: refreshTTL,
	}
}

// Rotate executes §4.7 steps 1-6.
func (c *Coordinator) Rotate(ctx context.Context, refreshToken string) (*login.Pair, error) {
	// Step 1: decode.
	claims, err := c.codec.Decode(refreshToken)
	if err != nil {
		return nil, apperror.ErrInvalidRefresh
	}
	if claims.Type != credential.TypeRefresh {
		return nil, apperror.ErrInvalidRefresh
	}

	// Step 2: look up by hash.
	oldHash := repository.HashToken(refreshToken)
	record, err := c.refreshRepo.GetByHash(ctx, oldHash)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrInvalidRefresh
	}
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}
	if !record.Usable(time.Now()) {
		return nil, apperror.ErrInvalidRefresh
	}

	// Step 3: principal must still be usable.
	principal, err := c.principals.GetByID(ctx, record.PrincipalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrInvalidRefresh
	}
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}
	if !principal.Usable() {
		return nil, apperror.ErrInvalidRefresh
	}

	perms, err := c.principals.Permissions(ctx, principal.ID)
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}

	// Step 4: issue new pair.
	newAccess, err := c.codec.IssueAccess(principal.ID, principal.Email, perms.Roles, perms.Permissions, nil)
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}
	newRefresh, err := c.codec.IssueRefresh(principal.ID)
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}
	newAccessClaims, err := c.codec.Decode(newAccess)
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}

	// Step 5: one transaction revokes old, inserts new. The UPDATE's row
	// lock on token_hash gives at-most-once rotation: a concurrent
	// rotation against oldHash either wins this race or observes
	// RowsAffected()==0 below and returns the generic error.
	newHash := repository.HashToken(newRefresh)
	err = c.repo.Transaction(ctx, func(tx *sqlx.Tx) error {
		n, err := c.refreshRepo.RevokeByHashTx(ctx, tx, oldHash)
		if err != nil {
			return fmt.Errorf("revoke old refresh: %w", err)
		}
		if n == 0 {
			return errAlreadyRotated
		}
		return c.refreshRepo.InsertTx(ctx, tx, principal.ID, newHash, record.DeviceInfo, time.Now().Add(c.refreshTTL))
	})
	if errors.Is(err, errAlreadyRotated) {
		return nil, apperror.ErrInvalidRefresh
	}
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}

	if err := c.registry.RegisterAccess(ctx, principal.ID, newAccessClaims.JTI, c.accessTTL); err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}

	// Step 6.
	return &login.Pair{AccessToken: newAccess, RefreshToken: newRefresh, ExpiresIn: int64(c.accessTTL.Seconds())}, nil
}

var errAlreadyRotated = errors.New("refreshflow: refresh token already rotated")
