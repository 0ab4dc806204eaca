// Package doctors owns the doctor profile: speciality and photo for the
// accounts enrolled by administrators. Patients browse the doctor
// directory through this package; the auth plugin creates and loads
// profiles through its service.
package doctors

import "time"

// Doctor is the profile document for a doctor account.
type Doctor struct {
	AccountID  string  `json:"account_id"`
	Speciality string  `json:"speciality"`
	Photo      *string `json:"photo,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Name is joined from the accounts table for directory listings.
	// Not stored in the doctors table.
	Name string `json:"name,omitempty"`
}

// UpdateProfileRequest is the JSON body for a doctor editing their profile.
type UpdateProfileRequest struct {
	Speciality string  `json:"speciality"`
	Photo      *string `json:"photo"`
}
