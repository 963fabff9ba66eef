// Package repository implements the relational store (C4): connection
// pooling comes from internal/platform, this package adds transactions,
// advisory locks, and query timing on top of sqlx. It names operations —
// the stored-statement SQL text is deliberately kept to the minimal
// queries this module actually needs, not owned by any external schema
// manager.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zeromicro/go-zero/core/logx"
)

var ErrNotFound = errors.New("repository: record not found")

// Repository wraps the pooled connection with timing and transaction
// helpers shared by PrincipalRepo and RefreshRepo.
type Repository struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn inside a single relational transaction, rolling back
// on error or panic. The two stores are never written within one
// transaction — only relational statements belong in fn.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}

// WithAdvisoryLock acquires a PostgreSQL transaction-scoped advisory lock
// keyed by principalID before running fn, serializing concurrent logins
// for one principal (spec.md §4.6 step 7). The lock is released
// automatically at transaction end.
func (r *Repository) WithAdvisoryLock(ctx context.Context, tx *sqlx.Tx, principalID int64, fn func() error) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, principalID); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	return fn()
}

// timed logs slow-query warnings the way query_timing.py's original
// decorator does, without inventing a new ambient concern: it is a one-line
// extension of the logging BaseRepository already does on failure.
func timed(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		logx.Infof("repository: %s took %s", op, elapsed)
	}
	return err
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
