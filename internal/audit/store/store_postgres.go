package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"atti/internal/audit/models"
	id "atti/pkg/domain"
	"atti/pkg/platform/tx"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id                  UUID PRIMARY KEY,
	process_instance_id TEXT,
	event_type          TEXT NOT NULL,
	user_id             TEXT,
	timestamp           TIMESTAMPTZ NOT NULL DEFAULT now(),
	details             TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_log_process_instance ON audit_log (process_instance_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_user ON audit_log (user_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log (timestamp DESC);
`

// PostgresStore persists the audit trail in the audit_log table. The
// timestamp column defaults to the database clock.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

// Migrate creates the audit_log table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit_log: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO audit_log (id, process_instance_id, event_type, user_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING timestamp
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(e.ID),
		nullString(e.ProcessInstanceID),
		e.EventType,
		nullString(e.UserID),
		nullString(e.Details),
	).Scan(&e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	e.Timestamp = e.Timestamp.UTC()
	return nil
}

// Query returns events matching every set filter field, newest first.
func (s *PostgresStore) Query(ctx context.Context, f models.Filter) ([]*models.Event, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.ProcessInstanceID != "" {
		add("process_instance_id = ?", f.ProcessInstanceID)
	}
	if f.UserID != "" {
		add("user_id = ?", f.UserID)
	}
	if f.From != nil {
		add("timestamp >= ?", *f.From)
	}
	if f.To != nil {
		add("timestamp <= ?", *f.To)
	}

	query := `SELECT id, process_instance_id, event_type, user_id, timestamp, details FROM audit_log`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*models.Event, error) {
	events := make([]*models.Event, 0)
	for rows.Next() {
		var (
			eventID           uuid.UUID
			processInstanceID sql.NullString
			userID            sql.NullString
			details           sql.NullString
			e                 models.Event
		)
		if err := rows.Scan(&eventID, &processInstanceID, &e.EventType, &userID, &e.Timestamp, &details); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = id.AuditEventID(eventID)
		e.ProcessInstanceID = processInstanceID.String
		e.UserID = userID.String
		e.Details = details.String
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
