// Package models defines the data model entities shared across the core:
// principals, the permission projection, refresh records, and the
// tiered-cache rows. Creation and mutation of Principal itself lives outside
// this module; the core only reads it.
package models

import "time"

// Principal is the authenticatable entity. A non-nil DeletedAt means the
// principal must never be authenticated.
type Principal struct {
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Active       bool       `db:"active" json:"active"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Usable reports whether the principal may authenticate at all.
func (p *Principal) Usable() bool {
	return p.Active && p.DeletedAt == nil
}

// Permissions is the read projection the core consumes for issuing access
// credentials. Permissions are formatted "resource:action".
type Permissions struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// RefreshRecord is a persisted row in the relational store. The credential
// string itself is never stored — only its SHA-256 hash.
type RefreshRecord struct {
	ID          int64      `db:"id"`
	PrincipalID int64      `db:"principal_id"`
	TokenHash   string     `db:"token_hash"`
	DeviceInfo  *string    `db:"device_info"`
	CreatedAt   time.Time  `db:"created_at"`
	ExpiresAt   time.Time  `db:"expires_at"`
	RevokedAt   *time.Time `db:"revoked_at"`
}

// Usable reports whether the record can still be rotated against.
func (r *RefreshRecord) Usable(now time.Time) bool {
	return r.RevokedAt == nil && r.ExpiresAt.After(now)
}

// LoginHistoryEntry mirrors the audit trail's login-history row.
type LoginHistoryEntry struct {
	ID          int64     `db:"id"`
	PrincipalID *int64    `db:"principal_id"`
	IPAddress   string    `db:"ip_address"`
	UserAgent   string    `db:"user_agent"`
	Success     bool      `db:"success"`
	CreatedAt   time.Time `db:"created_at"`
}

// CacheEntry is a row in the persistent (cold) tier of the two-tier cache.
type CacheEntry struct {
	Key       string    `db:"cache_key"`
	Value     []byte    `db:"cache_value"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Session is the public projection of a RefreshRecord returned by
// GET /api/v1/auth/sessions.
type Session struct {
	ID         int64      `json:"id"`
	DeviceInfo *string    `json:"device_info,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Current    bool       `json:"current"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}
