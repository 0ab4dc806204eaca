// Package audit records security-relevant account events: signups, logins,
// failed logins, password changes, and reset-flow activity. Every entry is
// persisted to the audit_log table and exposed to administrators as a
// paginated feed.
//
// Audit writes are observational -- they never block or fail the operation
// that triggered them.
package audit

import "time"

// --- Action Constants ---
// Each action string follows the pattern "resource.verb" for consistent
// filtering and display grouping.

const (
	// ActionSignup is logged when a patient self-registers.
	ActionSignup = "auth.signup"

	// ActionDoctorSignup is logged when an admin enrolls a doctor account.
	ActionDoctorSignup = "auth.doctor_signup"

	// ActionLogin is logged on every successful login.
	ActionLogin = "auth.login"

	// ActionLoginFailed is logged when a login fails on the password check.
	ActionLoginFailed = "auth.login_failed"

	// ActionPasswordChanged is logged on an authenticated password change.
	ActionPasswordChanged = "auth.password_changed"

	// ActionResetRequested is logged when a password reset email is requested.
	ActionResetRequested = "auth.reset_requested"

	// ActionResetRedeemed is logged when a reset token is successfully redeemed.
	ActionResetRedeemed = "auth.reset_redeemed"

	// ActionActiveChanged is logged when an admin toggles an account's
	// active flag.
	ActionActiveChanged = "account.active_changed"
)

// Entry represents a single recorded event in the audit log. AccountID is
// the account the event concerns, which for admin actions is the target
// account; the acting admin goes in Details. The Details map holds
// action-specific metadata.
type Entry struct {
	ID        int64          `json:"id"`
	AccountID string         `json:"accountId"`
	Action    string         `json:"action"`
	RemoteIP  string         `json:"remoteIp,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`

	// AccountEmail is joined from the accounts table for display in the
	// admin feed. Not stored in audit_log -- populated at query time.
	AccountEmail string `json:"accountEmail,omitempty"`
}
