// Package platform wires the relational and volatile store connections:
// pool sizing, liveness, and the primitives the repository layer builds on.
package platform

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/gitdwsong72/auth-system/internal/config"
)

// NewPostgres opens the relational store pool. Pool sizing comes from the
// DB_POOL_MIN_SIZE/DB_POOL_MAX_SIZE environment variables (production
// default 20/100) rather than the teacher's hardcoded 25/25.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.PrimaryURL)
	if err != nil {
		logx.Errorf("failed to connect to postgres: %v", err)
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	maxOpen := cfg.PoolMax
	if maxOpen <= 0 {
		maxOpen = 100
	}
	maxIdle := cfg.PoolMin
	if maxIdle <= 0 {
		maxIdle = 20
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		logx.Errorf("failed to ping postgres: %v", err)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logx.Info("connected to postgres")
	return db, nil
}
