// Package mailer provides outbound email for Healthify: password reset
// links and welcome messages. SMTP settings are stored in the database and
// managed by administrators. The encrypted password is NEVER returned to
// the client -- only a boolean indicating whether a password is configured.
package mailer

import "time"

// Settings holds the SMTP configuration. This is what the service layer
// and handlers work with. The password is intentionally omitted -- use
// HasPassword to show whether one is set.
type Settings struct {
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Username    string    `json:"username"`
	HasPassword bool      `json:"has_password"` // True if encrypted password exists.
	FromAddress string    `json:"from_address"`
	FromName    string    `json:"from_name"`
	Encryption  string    `json:"encryption"` // "starttls", "ssl", or "none".
	Enabled     bool      `json:"enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// settingsRow is the raw database row including encrypted password bytes.
// Internal only -- never exposed outside the repository.
type settingsRow struct {
	Host              string
	Port              int
	Username          string
	PasswordEncrypted []byte // AES-256-GCM encrypted, nil if not set.
	FromAddress       string
	FromName          string
	Encryption        string
	Enabled           bool
	UpdatedAt         time.Time
}

// toSettings converts a database row to the safe Settings struct.
func (r *settingsRow) toSettings() *Settings {
	return &Settings{
		Host:        r.Host,
		Port:        r.Port,
		Username:    r.Username,
		HasPassword: len(r.PasswordEncrypted) > 0,
		FromAddress: r.FromAddress,
		FromName:    r.FromName,
		Encryption:  r.Encryption,
		Enabled:     r.Enabled,
		UpdatedAt:   r.UpdatedAt,
	}
}

// UpdateSettingsRequest holds the admin form data for updating SMTP
// settings. Password is optional -- empty means "keep existing".
type UpdateSettingsRequest struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"` // Empty = keep existing.
	FromAddress string `json:"from_address"`
	FromName    string `json:"from_name"`
	Encryption  string `json:"encryption"`
	Enabled     bool   `json:"enabled"`
}
