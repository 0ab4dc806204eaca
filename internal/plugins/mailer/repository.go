package mailer

import (
	"context"
	"database/sql"
	"fmt"
)

// SettingsRepository handles database operations for SMTP settings.
// This is a singleton table (id=1) so all operations target that row.
type SettingsRepository interface {
	// Get returns the settings row including encrypted password bytes.
	Get(ctx context.Context) (*settingsRow, error)

	// Upsert updates the settings. Uses INSERT ... ON DUPLICATE KEY UPDATE
	// to handle the singleton pattern.
	Upsert(ctx context.Context, row *settingsRow) error
}

// settingsRepository implements SettingsRepository with MariaDB.
type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get retrieves the singleton settings row.
func (r *settingsRepository) Get(ctx context.Context) (*settingsRow, error) {
	row := &settingsRow{}
	err := r.db.QueryRowContext(ctx,
		`SELECT host, port, username, password_encrypted, from_address,
		        from_name, encryption, enabled, updated_at
		 FROM smtp_settings WHERE id = 1`,
	).Scan(
		&row.Host, &row.Port, &row.Username, &row.PasswordEncrypted,
		&row.FromAddress, &row.FromName, &row.Encryption, &row.Enabled,
		&row.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("querying smtp settings: %w", err)
	}
	return row, nil
}

// Upsert writes the settings to the singleton row.
func (r *settingsRepository) Upsert(ctx context.Context, row *settingsRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO smtp_settings (id, host, port, username, password_encrypted,
		                            from_address, from_name, encryption, enabled)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		     host = VALUES(host),
		     port = VALUES(port),
		     username = VALUES(username),
		     password_encrypted = VALUES(password_encrypted),
		     from_address = VALUES(from_address),
		     from_name = VALUES(from_name),
		     encryption = VALUES(encryption),
		     enabled = VALUES(enabled)`,
		row.Host, row.Port, row.Username, row.PasswordEncrypted,
		row.FromAddress, row.FromName, row.Encryption, row.Enabled,
	)
	if err != nil {
		return fmt.Errorf("upserting smtp settings: %w", err)
	}
	return nil
}
