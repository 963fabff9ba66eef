package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/gitdwsong72/auth-system/internal/models"
)

// PrincipalRepo reads principals and their role/permission projection. The
// core only reads — creation, profile mutation, and role administration
// are external collaborators.
type PrincipalRepo struct {
	db *sqlx.DB
}

func NewPrincipalRepo(db *sqlx.DB) *PrincipalRepo {
	return &PrincipalRepo{db: db}
}

func (r *PrincipalRepo) GetByEmail(ctx context.Context, email string) (*models.Principal, error) {
	var p models.Principal
	err := timed("get_principal_by_email", func() error {
		return r.db.GetContext(ctx, &p,
			`SELECT id, email, password_hash, active, deleted_at, last_login_at, created_at
			 FROM principals WHERE email = $1`, email)
	})
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

func (r *PrincipalRepo) GetByID(ctx context.Context, id int64) (*models.Principal, error) {
	var p models.Principal
	err := timed("get_principal_by_id", func() error {
		return r.db.GetContext(ctx, &p,
			`SELECT id, email, password_hash, active, deleted_at, last_login_at, created_at
			 FROM principals WHERE id = $1`, id)
	})
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

// Permissions loads the read projection {roles, permissions} for id. It is
// the relational source of truth the two-tier cache resolves against on a
// miss.
func (r *PrincipalRepo) Permissions(ctx context.Context, id int64) (*models.Permissions, error) {
	var roles []string
	var perms []string

	err := timed("get_roles", func() error {
		return r.db.SelectContext(ctx, &roles,
			`SELECT r.name FROM roles r
			 JOIN principal_roles pr ON pr.role_id = r.id
			 WHERE pr.principal_id = $1`, id)
	})
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	err = timed("get_permissions", func() error {
		return r.db.SelectContext(ctx, &perms,
			`SELECT DISTINCT p.resource || ':' || p.action FROM permissions p
			 JOIN role_permissions rp ON rp.permission_id = p.id
			 JOIN principal_roles pr ON pr.role_id = rp.role_id
			 WHERE pr.principal_id = $1`, id)
	})
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}

	return &models.Permissions{Roles: roles, Permissions: perms}, nil
}

// UpdateLastLoginTx is run inside the login transaction, under the advisory
// lock.
func (r *PrincipalRepo) UpdateLastLoginTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE principals SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		logx.Errorf("update last_login_at failed for principal %d: %v", id, err)
	}
	return err
}

// InsertLoginHistoryTx records a login attempt, success or failure, inside
// an existing transaction (success path) or standalone (failure path via
// InsertLoginHistory).
func (r *PrincipalRepo) InsertLoginHistoryTx(ctx context.Context, tx *sqlx.Tx, principalID *int64, ip, userAgent string, success bool) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO login_history (principal_id, ip_address, user_agent, success, created_at)
		 VALUES ($1, $2, $3, $4, now())`, principalID, ip, userAgent, success)
	return err
}

func (r *PrincipalRepo) InsertLoginHistory(ctx context.Context, principalID *int64, ip, userAgent string, success bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_history (principal_id, ip_address, user_agent, success, created_at)
		 VALUES ($1, $2, $3, $4, now())`, principalID, ip, userAgent, success)
	if err != nil {
		logx.Errorf("insert login_history failed: %v", err)
	}
	return err
}
