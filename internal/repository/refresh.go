package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gitdwsong72/auth-system/internal/models"
)

// RefreshRepo owns the persistent half of the credential registry: rows
// keyed by the SHA-256 hash of the refresh credential string, never the
// string itself.
type RefreshRepo struct {
	db *sqlx.DB
}

func NewRefreshRepo(db *sqlx.DB) *RefreshRepo {
	return &RefreshRepo{db: db}
}

// HashToken returns the hex SHA-256 digest used as the lookup key.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *RefreshRepo) GetByHash(ctx context.Context, hash string) (*models.RefreshRecord, error) {
	var rec models.RefreshRecord
	err := timed("get_refresh_by_hash", func() error {
		return r.db.GetContext(ctx, &rec,
			`SELECT id, principal_id, token_hash, device_info, created_at, expires_at, revoked_at
			 FROM refresh_tokens WHERE token_hash = $1`, hash)
	})
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &rec, nil
}

// InsertTx inserts a new refresh row inside an existing transaction — used
// both at login (§4.6-7) and at rotation (§4.7-5).
func (r *RefreshRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, principalID int64, tokenHash string, deviceInfo *string, expiresAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (principal_id, token_hash, device_info, created_at, expires_at, revoked_at)
		 VALUES ($1, $2, $3, now(), $4, NULL)`, principalID, tokenHash, deviceInfo, expiresAt)
	return err
}

// RevokeByHashTx marks a single row revoked. The row lock this UPDATE takes
// is what gives refresh rotation its at-most-once guarantee: a concurrent
// rotation against the same hash blocks here and then observes
// revoked_at IS NOT NULL.
func (r *RefreshRepo) RevokeByHashTx(ctx context.Context, tx *sqlx.Tx, hash string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE token_hash = $1 AND revoked_at IS NULL`, hash)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeByHash is the standalone (non-transactional) form logout uses to
// idempotently revoke an accompanying refresh credential.
func (r *RefreshRepo) RevokeByHash(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE token_hash = $1 AND revoked_at IS NULL`, hash)
	return err
}

// RevokeAllForPrincipal revokes every still-usable row for principalID in
// one statement (spec.md §4.4 invariant 4, step 1).
func (r *RefreshRepo) RevokeAllForPrincipal(ctx context.Context, principalID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE principal_id = $1 AND revoked_at IS NULL`, principalID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListActiveSessions returns every usable refresh row for principalID, the
// projection behind GET /api/v1/auth/sessions.
func (r *RefreshRepo) ListActiveSessions(ctx context.Context, principalID int64) ([]models.RefreshRecord, error) {
	var recs []models.RefreshRecord
	err := r.db.SelectContext(ctx, &recs,
		`SELECT id, principal_id, token_hash, device_info, created_at, expires_at, revoked_at
		 FROM refresh_tokens
		 WHERE principal_id = $1 AND revoked_at IS NULL AND expires_at > now()
		 ORDER BY created_at DESC`, principalID)
	return recs, err
}
