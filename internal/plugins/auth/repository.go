package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/healthify/healthify/internal/apperror"
)

// AccountRepository defines the data access contract for account records.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string) error

	// Password lifecycle. UpdatePassword also clears any pending reset
	// token: a completed password change supersedes an outstanding reset.
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*Account, error)

	// Admin operations.
	List(ctx context.Context, offset, limit int) ([]Account, int, error)
	UpdateActive(ctx context.Context, id string, active bool) error
}

// accountRepository implements AccountRepository with hand-written MariaDB queries.
type accountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates an account repository backed by the given DB pool.
func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

// accountColumns is the full column list shared by the single-row lookups.
const accountColumns = `id, email, name, phone, password_hash, role, active,
	               password_changed_at, reset_token_hash, reset_token_expires_at,
	               created_at, last_login_at`

// scanAccount scans one full account row.
func scanAccount(row *sql.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Name,
		&account.Phone,
		&account.PasswordHash,
		&account.Role,
		&account.Active,
		&account.PasswordChangedAt,
		&account.ResetTokenHash,
		&account.ResetTokenExpiresAt,
		&account.CreatedAt,
		&account.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Create inserts a new account row.
func (r *accountRepository) Create(ctx context.Context, account *Account) error {
	query := `INSERT INTO accounts (id, email, name, phone, password_hash, role, active, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.Name,
		account.Phone,
		account.PasswordHash,
		account.Role,
		account.Active,
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}

	return nil
}

// FindByID retrieves an account by its UUID.
// Returns apperror.NotFound if no account exists with this ID.
func (r *accountRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by id: %w", err)
	}

	return account, nil
}

// FindByEmail retrieves an account by its email address.
// Returns apperror.NotFound if no account exists with this email.
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = ?`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by email: %w", err)
	}

	return account, nil
}

// EmailExists returns true if an account with the given email already exists.
// Used during signup to check for duplicates before hashing the password.
func (r *accountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}

	return exists, nil
}

// UpdateLastLogin sets the last_login_at timestamp to now for the given account.
func (r *accountRepository) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE accounts SET last_login_at = NOW() WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}

	return nil
}

// --- Password Lifecycle ---

// UpdatePassword sets a new password hash and the password-changed-at
// timestamp, and clears any pending reset token in the same statement.
func (r *accountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	query := `UPDATE accounts
	          SET password_hash = ?, password_changed_at = ?,
	              reset_token_hash = NULL, reset_token_expires_at = NULL
	          WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, passwordHash, changedAt, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("account not found")
	}
	return nil
}

// SetResetToken stores the reset token hash and its expiry on the account,
// overwriting any previous token. At most one reset token is live per
// account -- a new request supersedes the old one.
func (r *accountRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE accounts SET reset_token_hash = ?, reset_token_expires_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, tokenHash, expiresAt, id)
	if err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("account not found")
	}
	return nil
}

// FindByResetTokenHash retrieves the account holding the given reset token
// hash, provided the token has not yet expired at the given instant. A
// wrong hash and an expired one are indistinguishable to the caller.
func (r *accountRepository) FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*Account, error) {
	query := `SELECT ` + accountColumns + `
	          FROM accounts WHERE reset_token_hash = ? AND reset_token_expires_at > ?`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, tokenHash, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("reset token not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by reset token: %w", err)
	}

	return account, nil
}

// --- Admin Operations ---

// List returns a paginated list of accounts ordered by creation date.
// Also returns the total count for pagination.
func (r *accountRepository) List(ctx context.Context, offset, limit int) ([]Account, int, error) {
	// Get total count.
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting accounts: %w", err)
	}

	// Deliberately exclude password_hash and reset token state from this
	// query. Admin list views don't need credential data.
	query := `SELECT id, email, name, phone, role, active, created_at, last_login_at
	          FROM accounts ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(
			&a.ID, &a.Email, &a.Name, &a.Phone,
			&a.Role, &a.Active, &a.CreatedAt, &a.LastLoginAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, total, rows.Err()
}

// UpdateActive sets or clears the active flag for an account.
func (r *accountRepository) UpdateActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE accounts SET active = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("updating active flag: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("account not found")
	}

	return nil
}
