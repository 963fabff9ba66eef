// Package cache implements the tiered permission-projection cache: a cold
// persistent table (Postgres) and a hot volatile tier (Redis), exposed
// through one operational interface as spec.md §3 requires. A cache miss
// is always authoritative "re-resolve from source"; a write that changes a
// principal's roles or profile must invalidate both tiers for that
// principal (see Invalidate).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/gitdwsong72/auth-system/internal/models"
	"github.com/gitdwsong72/auth-system/internal/volatilestore"
)

// DefaultTTL is the permissions-projection cache lifetime named in
// spec.md §9's open question on role-change staleness.
const DefaultTTL = 5 * time.Minute

const hotKeyPrefix = "cache:permissions:"

// Cache composes the cold (Postgres) and hot (Redis) tiers behind a single
// get/set/delete/delete_pattern/cleanup_expired interface. It exposes no
// stats operation.
type Cache struct {
	db  *sqlx.DB
	hot volatilestore.Store
}

func New(db *sqlx.DB, hot volatilestore.Store) *Cache {
	return &Cache{db: db, hot: hot}
}

// GetPermissions reads the hot tier first, falling back to the cold table,
// and repopulates the hot tier on a cold hit. A miss on both returns
// (nil, false, nil) — the caller re-resolves from the relational source of
// truth and calls SetPermissions.
func (c *Cache) GetPermissions(ctx context.Context, principalID int64) (*models.Permissions, bool, error) {
	key := hotKey(principalID)

	if raw, ok, err := c.hot.Get(ctx, key); err == nil && ok {
		var p models.Permissions
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
			return &p, true, nil
		}
	}

	var entry models.CacheEntry
	err := c.db.GetContext(ctx, &entry,
		`SELECT cache_key, cache_value, expires_at FROM cache_entries WHERE cache_key = $1 AND expires_at > now()`,
		key)
	if err != nil {
		return nil, false, nil //nolint:nilerr // cache miss is not an error condition
	}

	var p models.Permissions
	if err := json.Unmarshal(entry.Value, &p); err != nil {
		return nil, false, nil
	}

	if ttl := time.Until(entry.ExpiresAt); ttl > 0 {
		_ = c.hot.SetEx(ctx, key, string(entry.Value), ttl)
	}
	return &p, true, nil
}

// SetPermissions populates both tiers with the same TTL.
func (c *Cache) SetPermissions(ctx context.Context, principalID int64, p models.Permissions, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cache: marshal permissions: %w", err)
	}
	key := hotKey(principalID)

	if err := c.hot.SetEx(ctx, key, string(raw), ttl); err != nil {
		logx.Errorf("cache: hot tier set failed for %s: %v", key, err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO cache_entries (cache_key, cache_value, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, expires_at = EXCLUDED.expires_at`,
		key, raw, time.Now().Add(ttl))
	return err
}

// Invalidate clears both tiers for principalID. Called after any write that
// changes roles, permissions, or profile.
func (c *Cache) Invalidate(ctx context.Context, principalID int64) error {
	key := hotKey(principalID)
	if err := c.hot.Delete(ctx, key); err != nil {
		logx.Errorf("cache: hot tier delete failed for %s: %v", key, err)
	}
	_, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key = $1`, key)
	return err
}

// InvalidatePattern removes every cold and hot entry matching pattern (a
// SQL LIKE pattern for the cold tier, a Redis glob for the hot tier).
func (c *Cache) InvalidatePattern(ctx context.Context, sqlLikePattern, redisGlobPattern string) error {
	if _, err := c.hot.ScanDelete(ctx, redisGlobPattern); err != nil {
		logx.Errorf("cache: scan_delete failed for %s: %v", redisGlobPattern, err)
	}
	_, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key LIKE $1`, sqlLikePattern)
	return err
}

// CleanupExpired deletes expired rows from the cold tier. Intended to be
// invoked periodically by RunCleanup.
func (c *Cache) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RunCleanup periodically deletes expired persistent cache entries until
// ctx is cancelled (spec.md §5, background task, default interval 1h).
func (c *Cache) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.CleanupExpired(ctx)
			if err != nil {
				logx.Errorf("cache: cleanup_expired failed: %v", err)
				continue
			}
			if n > 0 {
				logx.Infof("cache: cleanup_expired removed %d rows", n)
			}
		}
	}
}

func hotKey(principalID int64) string {
	return fmt.Sprintf("%s%d", hotKeyPrefix, principalID)
}
