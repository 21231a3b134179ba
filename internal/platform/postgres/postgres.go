// Package postgres opens the shared database pool and applies the schema.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gatekeeper/internal/platform/config"
	"gatekeeper/pkg/platform/sentinel"
)

//go:embed schema.sql
var Schema string

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Open creates a pool for cfg.URL and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// ClassifyError maps driver failures to store sentinels: unique violations
// become ErrConflict; deadlines and broken connections become ErrUnavailable.
// Other errors are returned unchanged.
func ClassifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, sql.ErrTxDone):
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception; 57P: operator intervention
		if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57" {
			return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
		return err
	}
	return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
}
