package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gatekeeper/internal/admission/models"
	"gatekeeper/internal/admission/ports"
	"gatekeeper/internal/platform/postgres"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/sentinel"
)

// dbExecutor is satisfied by *sql.DB and *sql.Tx.
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists admission state in PostgreSQL. Concurrency guards
// live in the schema: a partial unique index allows one pending request per
// email, and request completion is a conditional UPDATE. Inside RunInTx the
// policy row is read with FOR UPDATE so read-modify-write edits serialize.
type PostgresStore struct {
	db      *sql.DB
	exec    dbExecutor
	timeout time.Duration
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTxTimeout bounds transactions whose caller set no deadline. Zero keeps
// the default.
func WithTxTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed config store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, exec: db, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.ConfigStore = (*PostgresStore)(nil)

// RunInTx runs fn inside one database transaction, committing only if fn
// succeeds. Nested calls reuse the open transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(store ports.Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return postgres.ClassifyError(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&PostgresStore{exec: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return postgres.ClassifyError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// =============================================================================
// Policy
// =============================================================================

func (s *PostgresStore) GetPolicy(ctx context.Context) (*models.DomainPolicy, error) {
	query := `
		SELECT allowed_domains, allowed_emails, allow_new_users, require_approval, updated_at, updated_by
		FROM domain_policy WHERE id = 1
	`
	if s.db == nil {
		query += " FOR UPDATE"
	}
	var p models.DomainPolicy
	err := s.exec.QueryRowContext(ctx, query).Scan(
		pq.Array(&p.AllowedDomains),
		pq.Array(&p.AllowedEmails),
		&p.AllowNewUsers,
		&p.RequireApproval,
		&p.UpdatedAt,
		&p.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get policy: %w", err)
	}
	if p.AllowedDomains == nil {
		p.AllowedDomains = []string{}
	}
	if p.AllowedEmails == nil {
		p.AllowedEmails = []string{}
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *PostgresStore) SavePolicy(ctx context.Context, p *models.DomainPolicy) error {
	query := `
		INSERT INTO domain_policy (id, allowed_domains, allowed_emails, allow_new_users, require_approval, updated_at, updated_by)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			allowed_domains = EXCLUDED.allowed_domains,
			allowed_emails = EXCLUDED.allowed_emails,
			allow_new_users = EXCLUDED.allow_new_users,
			require_approval = EXCLUDED.require_approval,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`
	_, err := s.exec.ExecContext(ctx, query,
		pq.Array(p.AllowedDomains),
		pq.Array(p.AllowedEmails),
		p.AllowNewUsers,
		p.RequireApproval,
		p.UpdatedAt,
		p.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePolicyIfAbsent(ctx context.Context, p *models.DomainPolicy) (bool, error) {
	query := `
		INSERT INTO domain_policy (id, allowed_domains, allowed_emails, allow_new_users, require_approval, updated_at, updated_by)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.exec.ExecContext(ctx, query,
		pq.Array(p.AllowedDomains),
		pq.Array(p.AllowedEmails),
		p.AllowNewUsers,
		p.RequireApproval,
		p.UpdatedAt,
		p.UpdatedBy,
	)
	if err != nil {
		return false, fmt.Errorf("create policy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create policy: %w", err)
	}
	return n == 1, nil
}

// =============================================================================
// Whitelist entries
// =============================================================================

const entryColumns = `email, is_whitelisted, role, added_at, added_by`

func (s *PostgresStore) GetEntry(ctx context.Context, email string) (*models.WhitelistEntry, error) {
	row := s.exec.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM whitelist_entries WHERE email = $1`, email)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get whitelist entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) UpsertEntry(ctx context.Context, entry *models.WhitelistEntry) error {
	query := `
		INSERT INTO whitelist_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			is_whitelisted = EXCLUDED.is_whitelisted,
			role = EXCLUDED.role,
			added_at = EXCLUDED.added_at,
			added_by = EXCLUDED.added_by
	`
	_, err := s.exec.ExecContext(ctx, query,
		entry.Email,
		entry.IsWhitelisted,
		string(entry.Role),
		entry.AddedAt,
		entry.AddedBy,
	)
	if err != nil {
		return fmt.Errorf("upsert whitelist entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, email string) error {
	res, err := s.exec.ExecContext(ctx, `DELETE FROM whitelist_entries WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete whitelist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete whitelist entry: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListEntries(ctx context.Context) ([]*models.WhitelistEntry, error) {
	rows, err := s.exec.QueryContext(ctx, `SELECT `+entryColumns+` FROM whitelist_entries ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list whitelist entries: %w", err)
	}
	defer rows.Close()

	out := make([]*models.WhitelistEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan whitelist entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whitelist entries: %w", err)
	}
	return out, nil
}

// =============================================================================
// Admission requests
// =============================================================================

const requestColumns = `id, email, status, requested_at, processed_by, processed_at`

func (s *PostgresStore) CreateRequest(ctx context.Context, req *models.AdmissionRequest) error {
	query := `
		INSERT INTO admission_requests (id, email, status, requested_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.exec.ExecContext(ctx, query, req.ID, req.Email, string(req.Status), req.RequestedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create admission request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, id string) (*models.AdmissionRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sentinel.ErrNotFound
	}
	row := s.exec.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM admission_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get admission request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ListRequests(ctx context.Context, status models.RequestStatus) ([]*models.AdmissionRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM admission_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY requested_at, id
	`
	rows, err := s.exec.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list admission requests: %w", err)
	}
	defer rows.Close()

	out := make([]*models.AdmissionRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admission request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admission requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CompleteRequest(ctx context.Context, req *models.AdmissionRequest) error {
	query := `
		UPDATE admission_requests
		SET status = $2, processed_by = $3, processed_at = $4
		WHERE id = $1 AND status = 'pending'
	`
	res, err := s.exec.ExecContext(ctx, query, req.ID, string(req.Status), req.ProcessedBy, req.ProcessedAt)
	if err != nil {
		return fmt.Errorf("complete admission request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete admission request: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = s.exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM admission_requests WHERE id = $1)`, req.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("complete admission request: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) CountRequests(ctx context.Context) (map[models.RequestStatus]int, error) {
	rows, err := s.exec.QueryContext(ctx, `SELECT status, count(*) FROM admission_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count admission requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.RequestStatus]int, 3)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan request count: %w", err)
		}
		counts[models.RequestStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.WhitelistEntry, error) {
	var (
		entry models.WhitelistEntry
		role  string
	)
	if err := row.Scan(&entry.Email, &entry.IsWhitelisted, &role, &entry.AddedAt, &entry.AddedBy); err != nil {
		return nil, err
	}
	entry.Role = models.Role(role)
	entry.AddedAt = entry.AddedAt.UTC()
	return &entry, nil
}

func scanRequest(row rowScanner) (*models.AdmissionRequest, error) {
	var (
		req         models.AdmissionRequest
		status      string
		processedBy sql.NullString
		processedAt sql.NullTime
	)
	if err := row.Scan(&req.ID, &req.Email, &status, &req.RequestedAt, &processedBy, &processedAt); err != nil {
		return nil, err
	}
	req.Status = models.RequestStatus(status)
	req.RequestedAt = req.RequestedAt.UTC()
	req.ProcessedBy = processedBy.String
	if processedAt.Valid {
		t := processedAt.Time.UTC()
		req.ProcessedAt = &t
	}
	return &req, nil
}
