package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gatekeeper/internal/audit"
)

// Store appends security events to the security_events table.
// Rows are never updated or deleted.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.SecurityEvent) error {
	query := `
		INSERT INTO security_events (id, kind, actor, detail, occurred_at, request_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Kind),
		event.Actor,
		event.Detail,
		event.Timestamp,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, filter audit.Filter) ([]audit.SecurityEvent, error) {
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Actor != "" {
		args = append(args, filter.Actor)
		where = append(where, fmt.Sprintf("actor = $%d", len(args)))
	}
	args = append(args, filter.EffectiveLimit())

	query := `SELECT id, kind, actor, detail, occurred_at, request_id FROM security_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, seq DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query security events: %w", err)
	}
	defer rows.Close()

	var events []audit.SecurityEvent
	for rows.Next() {
		var (
			ev   audit.SecurityEvent
			kind string
		)
		if err := rows.Scan(&ev.ID, &kind, &ev.Actor, &ev.Detail, &ev.Timestamp, &ev.RequestID); err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		ev.Kind = audit.EventKind(kind)
		ev.Timestamp = ev.Timestamp.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate security events: %w", err)
	}
	return events, nil
}
