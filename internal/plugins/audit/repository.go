package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// AuditRepository defines the data access contract for the audit log.
type AuditRepository interface {
	Insert(ctx context.Context, entry *Entry) error
	List(ctx context.Context, offset, limit int) ([]Entry, int, error)
}

// auditRepository implements AuditRepository with MariaDB queries.
type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository backed by the given DB pool.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Insert writes one audit entry.
func (r *auditRepository) Insert(ctx context.Context, entry *Entry) error {
	query := `INSERT INTO audit_log (user_id, session_id, action, detail, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	var sessionID any
	if entry.SessionID != "" {
		sessionID = entry.SessionID
	}
	var detail any
	if entry.Detail != "" {
		detail = entry.Detail
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.UserID,
		sessionID,
		entry.Action,
		detail,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// List returns a page of audit entries, newest first, with usernames
// joined for display, plus the total count for pagination.
func (r *auditRepository) List(ctx context.Context, offset, limit int) ([]Entry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	query := `SELECT a.id, a.user_id, COALESCE(a.session_id, ''), a.action,
	                 COALESCE(a.detail, ''), a.created_at, COALESCE(u.username, '')
	          FROM audit_log a
	          LEFT JOIN users u ON u.id = a.user_id
	          ORDER BY a.created_at DESC, a.id DESC
	          LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.SessionID, &e.Action,
			&e.Detail, &e.CreatedAt, &e.Username,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning audit row: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, total, rows.Err()
}
