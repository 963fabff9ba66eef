// Package registry implements the credential registry (C5): the two-tier
// state machine over persistent refresh records (C4) and the volatile
// active-access set + blacklist (C3). The two stores are never written
// within a single transaction; volatile writes are ordered to be either
// idempotent or tolerant of orphaning.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/gitdwsong72/auth-system/internal/volatilestore"
)

const (
	activeSetPrefix = "active:"
	blacklistPrefix = "blacklist:"
)

// Registry composes the active-access set and blacklist over a single
// volatile store. RefreshRepo (persistent refresh records) lives alongside
// it in internal/repository and is orchestrated by the coordinators, not
// this type — this package owns only the volatile half of C5.
type Registry struct {
	store volatilestore.Store
}

func New(store volatilestore.Store) *Registry {
	return &Registry{store: store}
}

func activeSetKey(principalID int64) string {
	return fmt.Sprintf("%s%d", activeSetPrefix, principalID)
}

func blacklistKey(jti string) string {
	return blacklistPrefix + jti
}

// RegisterAccess adds jti to principalID's active-access set and refreshes
// the set's TTL to accessTTL, per spec.md's Active-access entry invariant
// (the set itself expires with the access lifetime).
func (r *Registry) RegisterAccess(ctx context.Context, principalID int64, jti string, accessTTL time.Duration) error {
	key := activeSetKey(principalID)
	if err := r.store.SetAdd(ctx, key, jti); err != nil {
		return fmt.Errorf("registry: register access: %w", err)
	}
	if err := r.store.SetExpire(ctx, key, accessTTL); err != nil {
		logx.Errorf("registry: failed to refresh active-set ttl for principal %d: %v", principalID, err)
	}
	return nil
}

// IsActive reports active-access-set membership; this is the cheap,
// decisive check evaluated before the blacklist (spec.md §4.4 invariant 1).
func (r *Registry) IsActive(ctx context.Context, principalID int64, jti string) (bool, error) {
	return r.store.SetIsMember(ctx, activeSetKey(principalID), jti)
}

// IsBlacklisted is the defensive secondary check, consulted after
// active-set membership; it rejects a jti that is still in the active set.
func (r *Registry) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return r.store.Exists(ctx, blacklistKey(jti))
}

// Blacklist adds jti with a TTL of at least the remaining credential
// lifetime.
func (r *Registry) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.store.SetEx(ctx, blacklistKey(jti), "1", ttl)
}

// RemoveFromActive removes jti from principalID's active-access set
// (logout).
func (r *Registry) RemoveFromActive(ctx context.Context, principalID int64, jti string) error {
	return r.store.SetRemove(ctx, activeSetKey(principalID), jti)
}

// ActiveJTIs returns every JTI currently outstanding for principalID, read
// before clearing the set during revoke_all.
func (r *Registry) ActiveJTIs(ctx context.Context, principalID int64) ([]string, error) {
	return r.store.SetMembers(ctx, activeSetKey(principalID))
}

// ClearActive deletes principalID's whole active-access set (final step of
// revoke_all).
func (r *Registry) ClearActive(ctx context.Context, principalID int64) error {
	return r.store.Delete(ctx, activeSetKey(principalID))
}

// BlacklistAll pipelines a blacklist write for every jti with a single TTL,
// the volatile side of revoke_all (spec.md §4.4 invariant 4). A failure
// here is tolerated by the caller: the persistent side is already safe and
// this step is idempotent on retry.
func (r *Registry) BlacklistAll(ctx context.Context, jtis []string, ttl time.Duration) error {
	if len(jtis) == 0 {
		return nil
	}
	ops := make([]volatilestore.Op, 0, len(jtis))
	for _, jti := range jtis {
		ops = append(ops, volatilestore.SetExOp(blacklistKey(jti), "1", ttl))
	}
	_, err := r.store.Pipeline(ctx, ops...)
	return err
}
