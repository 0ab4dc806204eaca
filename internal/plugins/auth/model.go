// Package auth owns the credential lifecycle for Healthify accounts:
// signup, login, bearer-token session validation, role gating, password
// change, and the email-based password reset flow. Tokens are stateless
// signed tokens (see internal/token); whether the account behind a token
// is still in good standing is decided here, on every request.
package auth

import (
	"time"
)

// Role is the closed set of account roles. Every account has exactly one.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Permitted reports whether r appears in the allowed set. An unknown or
// empty role is never permitted.
func Permitted(r Role, allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// Account is the credential record backing every user of the system.
// Role-specific profile data (patient measurements, doctor speciality)
// lives in the patients and doctors plugins keyed by account ID.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	PasswordHash string `json:"-"` // Never expose in JSON responses.
	Role         Role   `json:"role"`

	// Active is the soft-delete / deactivation flag. An inactive account
	// keeps its row but fails every authenticated request.
	Active bool `json:"active"`

	// PasswordChangedAt is nil until the first password change. Tokens
	// issued before this instant are rejected by the session guard.
	PasswordChangedAt *time.Time `json:"-"`

	// Reset token state. Hash only -- the plaintext token is never stored.
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// PasswordChangedAfter reports whether the account's password was changed
// strictly after the given instant. Used against a token's issued-at to
// invalidate tokens that predate a password change.
func (a *Account) PasswordChangedAfter(t time.Time) bool {
	return a.PasswordChangedAt != nil && a.PasswordChangedAt.After(t)
}

// --- Request DTOs (bound from HTTP requests) ---

// SignupRequest is the JSON body for patient self-registration.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

// DoctorSignupRequest is the JSON body for admin-driven doctor enrollment.
type DoctorSignupRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	Confirm    string `json:"confirm"`
	Speciality string `json:"speciality"`
}

// LoginRequest is the JSON body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the JSON body for requesting a reset email.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the JSON body for redeeming a reset token. The
// token itself travels in the URL path.
type ResetPasswordRequest struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

// ChangePasswordRequest is the JSON body for an authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	Confirm         string `json:"confirm"`
}

// SetActiveRequest is the JSON body for the admin activate/deactivate toggle.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// --- Service Input DTOs (passed from handler to service) ---

// SignupInput is the validated input for creating a patient account.
type SignupInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	RemoteIP string
}

// DoctorSignupInput is the validated input for creating a doctor account.
type DoctorSignupInput struct {
	Name       string
	Email      string
	Phone      string
	Password   string
	Speciality string

	// CreatedBy is the admin account performing the enrollment.
	CreatedBy string
	RemoteIP  string
}

// LoginInput is the validated input for authenticating an account.
type LoginInput struct {
	Email    string
	Password string
	RemoteIP string
}

// --- Responses ---

// AuthResult is what credential operations hand back: a fresh bearer token
// and the account it belongs to.
type AuthResult struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

// SessionView is the re-authentication response: the account's contact
// fields plus the role-specific profile document.
type SessionView struct {
	Role    Role     `json:"role"`
	Account *Account `json:"account"`
	Profile any      `json:"profile"`
}
