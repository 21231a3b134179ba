package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gatekeeper/internal/adminauth/models"
	"gatekeeper/pkg/platform/sentinel"
)

// PostgresStore persists admin records in the admin_records table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const adminColumns = `email, role, created_at, manage_whitelist, view_analytics, manage_users, active`

func (s *PostgresStore) Get(ctx context.Context, email string) (*models.AdminRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admin_records WHERE email = $1`, email)
	rec, err := scanAdmin(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get admin record: %w", err)
	}
	return rec, nil
}

// Save inserts or replaces the record. created_at is kept from the first insert.
func (s *PostgresStore) Save(ctx context.Context, rec *models.AdminRecord) error {
	query := `
		INSERT INTO admin_records (` + adminColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET
			role = EXCLUDED.role,
			manage_whitelist = EXCLUDED.manage_whitelist,
			view_analytics = EXCLUDED.view_analytics,
			manage_users = EXCLUDED.manage_users,
			active = EXCLUDED.active
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.Email,
		rec.Role,
		rec.CreatedAt,
		rec.Permissions.ManageWhitelist,
		rec.Permissions.ViewAnalytics,
		rec.Permissions.ManageUsers,
		rec.Active,
	)
	if err != nil {
		return fmt.Errorf("save admin record: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetActive(ctx context.Context, email string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE admin_records SET active = $2 WHERE email = $1`, email, active)
	if err != nil {
		return fmt.Errorf("set admin active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set admin active: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.AdminRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+adminColumns+` FROM admin_records ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list admin records: %w", err)
	}
	defer rows.Close()

	var out []*models.AdminRecord
	for rows.Next() {
		rec, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdmin(row rowScanner) (*models.AdminRecord, error) {
	var rec models.AdminRecord
	err := row.Scan(
		&rec.Email,
		&rec.Role,
		&rec.CreatedAt,
		&rec.Permissions.ManageWhitelist,
		&rec.Permissions.ViewAnalytics,
		&rec.Permissions.ManageUsers,
		&rec.Active,
	)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
