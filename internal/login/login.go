// Package login implements the login coordinator (C7): lockout check,
// authenticate, issue pair, persist, reset counters — with anti-enumeration
// semantics across every failure branch.
package login

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/gitdwsong72/auth-system/internal/apperror"
	"github.com/gitdwsong72/auth-system/internal/audit"
	"github.com/gitdwsong72/auth-system/internal/cache"
	"github.com/gitdwsong72/auth-system/internal/config"
	"github.com/gitdwsong72/auth-system/internal/credential"
	"github.com/gitdwsong72/auth-system/internal/password"
	"github.com/gitdwsong72/auth-system/internal/registry"
	"github.com/gitdwsong72/auth-system/internal/repository"
	"github.com/gitdwsong72/auth-system/internal/volatilestore"
)

const failedCounterPrefix = "failed_login:"

// Pair is the access/refresh credential pair a successful login, refresh,
// or no-op issues.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Coordinator owns the full login critical section described in
// spec.md §4.6. One Coordinator is built at startup and shared.
type Coordinator struct {
	store       volatilestore.Store
	repo        *repository.Repository
	principals  *repository.PrincipalRepo
	refreshRepo *repository.RefreshRepo
	registry    *registry.Registry
	codec       *credential.Codec
	hasher      *password.Hasher
	cache       *cache.Cache
	audit       audit.Sink
	pwCfg       config.PasswordConfig
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func New(
	store volatilestore.Store,
	repo *repository.Repository,
	principals *repository.PrincipalRepo,
	refreshRepo *repository.RefreshRepo,
	reg *registry.Registry,
	codec *credential.Codec,
	hasher *password.Hasher,
	c *cache.Cache,
	sink audit.Sink,
	pwCfg config.PasswordConfig,
	accessTTL, refreshTTL time.Duration,
) *Coordinator {
	return &Coordinator{
		store: store, repo: repo, principals: principals, refreshRepo: refreshRepo,
		registry: reg, codec: codec, hasher: hasher, cache: c, audit: sink,
		pwCfg: pwCfg, accessTTL: accessTTL, refreshTTL: refreshTTL,
	}
}

func failedCounterKey(email string) string {
	return failedCounterPrefix + email
}

// Login executes §4.6 steps 1-8. Every failure branch returns
// apperror.ErrInvalidCredentials — the same code, status, and message as
// every other branch (P1, S2).
func (c *Coordinator) Login(ctx context.Context, email, plaintextPassword string, deviceInfo *string, ip, userAgent string) (*Pair, error) {
	threshold := int64(c.pwCfg.MaxFailedAttempts)
	lockoutWindow := c.pwCfg.LockoutWindow()

	// Step 1: lockout check. A locked email never touches the database or
	// the hasher.
	countRaw, ok, err := c.store.Get(ctx, failedCounterKey(email))
	if err != nil {
		logx.Errorf("login: failed-counter read error for %s: %v", email, err)
	}
	if ok {
		if n, convErr := parseCounter(countRaw); convErr == nil && n >= threshold {
			c.audit.Record(ctx, audit.Event{Actor: email, IPAddress: ip, UserAgent: userAgent, Outcome: audit.OutcomeLoginLocked})
			return nil, apperror.ErrInvalidCredentials
		}
	}

	// Step 2: look up the principal.
	principal, err := c.principals.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		c.equalizeMissingUser(ctx, email, plaintextPassword, ip, userAgent, threshold, lockoutWindow)
		return nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}

	// Step 3: verify password.
	match, err := c.hasher.Verify(ctx, plaintextPassword, principal.PasswordHash)
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}
	if !match {
		newCount, incErr := c.store.IncrWithInitialTTL(ctx, failedCounterKey(email), lockoutWindow)
		if incErr != nil {
			logx.Errorf("login: failed-counter incr error for %s: %v", email, incErr)
		}
		_ = c.principals.InsertLoginHistory(ctx, &principal.ID, ip, userAgent, false)
		if newCount == threshold {
			c.audit.Record(ctx, audit.Event{Actor: email, IPAddress: ip, UserAgent: userAgent, Outcome: audit.OutcomeLoginLocked, Detail: "threshold reached"})
		} else {
			c.audit.Record(ctx, audit.Event{Actor: email, IPAddress: ip, UserAgent: userAgent, Outcome: audit.OutcomeLoginBadPass})
		}
		return nil, apperror.ErrInvalidCredentials
	}

	// Step 4: active/soft-deleted check.
	if !principal.Usable() {
		c.audit.Record(ctx, audit.Event{Actor: email, IPAddress: ip, UserAgent: userAgent, Outcome: audit.OutcomeLoginInactive})
		return nil, apperror.ErrInvalidCredentials
	}

	// Step 5: permissions projection via the two-tier cache.
	perms, hit, err := c.cache.GetPermissions(ctx, principal.ID)
	if err != nil {
		logx.Errorf("login: cache read error for principal %d: %v", principal.ID, err)
	}
	if !hit {
		resolved, err := c.principals.Permissions(ctx, principal.ID)
		if err != nil {
			return nil, apperror.ErrInternal.Wrap(err)
		}
		perms = resolved
		if err := c.cache.SetPermissions(ctx, principal.ID, *perms, cache.DefaultTTL); err != nil {
			logx.Errorf("login: cache populate error for principal %d: %v", principal.ID, err)
		}
	}

	// Step 6: issue the pair and register the access JTI.
	accessToken, err := c.codec.IssueAccess(principal.ID, principal.Email, perms.Roles, perms.Permissions, nil)
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}
	refreshToken, err := c.codec.IssueRefresh(principal.ID)
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}
	accessClaims, err := c.codec.Decode(accessToken)
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}
	if err := c.registry.RegisterAccess(ctx, principal.ID, accessClaims.JTI, c.accessTTL); err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}

	// Step 7: persist the refresh record + login history + last_login_at
	// under an advisory lock, serializing concurrent logins for principal.
	err = c.repo.Transaction(ctx, func(tx *sqlx.Tx) error {
		return c.repo.WithAdvisoryLock(ctx, tx, principal.ID, func() error {
			hash := repository.HashToken(refreshToken)
			if err := c.refreshRepo.InsertTx(ctx, tx, principal.ID, hash, deviceInfo, time.Now().Add(c.refreshTTL)); err != nil {
				return fmt.Errorf("insert refresh record: %w", err)
			}
			if err := c.principals.InsertLoginHistoryTx(ctx, tx, &principal.ID, ip, userAgent, true); err != nil {
				return fmt.Errorf("insert login history: %w", err)
			}
			return c.principals.UpdateLastLoginTx(ctx, tx, principal.ID)
		})
	})
	if err != nil {
		return nil, apperror.ErrInternal.Wrap(err)
	}

	// Step 8: reset the counter, emit success audit.
	if err := c.store.Delete(ctx, failedCounterKey(email)); err != nil {
		logx.Errorf("login: failed-counter reset error for %s: %v", email, err)
	}
	c.audit.Record(ctx, audit.Event{Actor: email, IPAddress: ip, UserAgent: userAgent, Outcome: audit.OutcomeLoginSuccess})

	return &Pair{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresIn: int64(c.accessTTL.Seconds())}, nil
}

// equalizeMissingUser performs step 2's anti-enumeration work: a bounded
// randomized sleep drawn from [100ms, 300ms] to approximate the
// hash-verify branch, plus the identical counter increment and audit write
// the "wrong password" branch performs.
func (c *Coordinator) equalizeMissingUser(ctx context.Context, email, plaintextPassword string, ip, userAgent string, threshold int64, lockoutWindow time.Duration) {
	delay, err := randDuration(100*time.Millisecond, 300*time.Millisecond)
	if err != nil {
		delay = 200 * time.Millisecond
	}
	// Also perform a real bcrypt comparison against a constant dummy hash
	// so CPU cost, not just wall-clock sleep, matches the wrong-password
	// branch (spec.md §9).
	_, _ = c.hasher.Verify(ctx, plaintextPassword, password.DummyHash)
	time.Sleep(delay)

	if _, err := c.store.IncrWithInitialTTL(ctx, failedCounterKey(email), lockoutWindow); err != nil {
		logx.Errorf("login: failed-counter incr error for %s: %v", email, err)
	}
	_ = c.principals.InsertLoginHistory(ctx, nil, ip, userAgent, false)
	c.audit.Record(ctx, audit.Event{Actor: email, IPAddress: ip, UserAgent: userAgent, Outcome: audit.OutcomeLoginNoUser})
}

func randDuration(min, max time.Duration) (time.Duration, error) {
	span := int64(max - min)
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}
	return min + time.Duration(n.Int64()), nil
}

func parseCounter(raw string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(raw, "%d", &n)
	return n, err
}
