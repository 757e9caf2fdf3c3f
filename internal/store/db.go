// Package store manages the relational store: the entities, evidence,
// ingestion_runs and events tables (§6), backed by pgx/pgxpool exactly as
// the teacher's pkg/core/store/db.go establishes a process-wide pool.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// Init opens the shared connection pool from dsn. Safe to call multiple
// times; only the first call dials.
func Init(ctx context.Context, dsn string) error {
	var err error
	once.Do(func() {
		if dsn == "" {
			err = fmt.Errorf("relational DSN not set")
			return
		}
		cfg, parseErr := pgxpool.ParseConfig(dsn)
		if parseErr != nil {
			err = fmt.Errorf("parse relational DSN: %w", parseErr)
			return
		}
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
	})
	return err
}

// Pool returns the shared connection pool.
func Pool() *pgxpool.Pool { return pool }

// Close closes the shared connection pool.
func Close() {
	if pool != nil {
		pool.Close()
	}
}
