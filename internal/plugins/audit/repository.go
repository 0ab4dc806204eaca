package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditRepository defines the data access contract for audit log operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type AuditRepository interface {
	// Insert writes a new audit entry to the database.
	Insert(ctx context.Context, entry *Entry) error

	// ListRecent returns paginated audit entries across all accounts, most
	// recent first. Joins the accounts table to include the email. Returns
	// the entries, total count (for pagination), and any error.
	ListRecent(ctx context.Context, limit, offset int) ([]Entry, int, error)

	// ListByAccount returns the most recent audit entries for one account.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Entry, error)
}

// auditRepository implements AuditRepository with MariaDB queries.
type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new repository backed by the given DB pool.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Insert writes a new audit entry. The details map is serialized to JSON
// before storage. Nil details are stored as SQL NULL.
func (r *auditRepository) Insert(ctx context.Context, entry *Entry) error {
	query := `INSERT INTO audit_log (account_id, action, remote_ip, details, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	var detailsJSON []byte
	if entry.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling audit details: %w", err)
		}
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		entry.AccountID, entry.Action, entry.RemoteIP,
		detailsJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit entry id: %w", err)
	}
	entry.ID = id

	return nil
}

// ListRecent returns audit entries ordered by most recent first. Joins the
// accounts table to include the email for the admin feed.
func (r *auditRepository) ListRecent(ctx context.Context, limit, offset int) ([]Entry, int, error) {
	// Count total entries for pagination.
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	query := `SELECT a.id, a.account_id, a.action, a.remote_ip,
	                 a.details, a.created_at,
	                 COALESCE(acc.email, '') AS account_email
	          FROM audit_log a
	          LEFT JOIN accounts acc ON acc.id = a.account_id
	          ORDER BY a.created_at DESC
	          LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanAuditRows(rows)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListByAccount returns the most recent audit entries for a single account.
func (r *auditRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	query := `SELECT a.id, a.account_id, a.action, a.remote_ip,
	                 a.details, a.created_at,
	                 COALESCE(acc.email, '') AS account_email
	          FROM audit_log a
	          LEFT JOIN accounts acc ON acc.id = a.account_id
	          WHERE a.account_id = ?
	          ORDER BY a.created_at DESC
	          LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing account audit entries: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

// scanAuditRows scans rows from an audit_log query into Entry slices.
// Expects columns: id, account_id, action, remote_ip, details, created_at,
// account_email.
func scanAuditRows(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var detailsJSON sql.NullString
		if err := rows.Scan(
			&e.ID, &e.AccountID, &e.Action, &e.RemoteIP,
			&detailsJSON, &e.CreatedAt, &e.AccountEmail,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		// Deserialize JSON details if present.
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &e.Details); err != nil {
				// Non-fatal: keep the feed alive even if one row is mangled.
				e.Details = map[string]any{"_parse_error": "invalid JSON"}
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	return entries, nil
}
