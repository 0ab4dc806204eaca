package doctors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/healthify/healthify/internal/apperror"
)

// DoctorRepository defines the data access contract for doctor profiles.
type DoctorRepository interface {
	Create(ctx context.Context, accountID, speciality string, createdAt time.Time) error
	FindByAccount(ctx context.Context, accountID string) (*Doctor, error)
	UpdateProfile(ctx context.Context, accountID, speciality string, photo *string, updatedAt time.Time) error

	// List returns active doctors joined with their account names,
	// ordered by name. Used for the patient-facing directory.
	List(ctx context.Context) ([]Doctor, error)
}

// doctorRepository implements DoctorRepository with MariaDB queries.
type doctorRepository struct {
	db *sql.DB
}

// NewDoctorRepository creates a doctor repository backed by the given DB pool.
func NewDoctorRepository(db *sql.DB) DoctorRepository {
	return &doctorRepository{db: db}
}

// Create inserts the profile row for a newly enrolled doctor.
func (r *doctorRepository) Create(ctx context.Context, accountID, speciality string, createdAt time.Time) error {
	query := `INSERT INTO doctors (account_id, speciality, created_at, updated_at) VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, accountID, speciality, createdAt, createdAt)
	if err != nil {
		return fmt.Errorf("inserting doctor profile: %w", err)
	}

	return nil
}

// FindByAccount retrieves the profile for an account.
// Returns apperror.NotFound if the account has no doctor profile.
func (r *doctorRepository) FindByAccount(ctx context.Context, accountID string) (*Doctor, error) {
	query := `SELECT account_id, speciality, photo, created_at, updated_at
	          FROM doctors WHERE account_id = ?`

	d := &Doctor{}
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&d.AccountID,
		&d.Speciality,
		&d.Photo,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("doctor profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying doctor profile: %w", err)
	}

	return d, nil
}

// UpdateProfile replaces the editable profile fields.
func (r *doctorRepository) UpdateProfile(ctx context.Context, accountID, speciality string, photo *string, updatedAt time.Time) error {
	query := `UPDATE doctors SET speciality = ?, photo = ?, updated_at = ? WHERE account_id = ?`

	result, err := r.db.ExecContext(ctx, query, speciality, photo, updatedAt, accountID)
	if err != nil {
		return fmt.Errorf("updating doctor profile: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("doctor profile not found")
	}

	return nil
}

// List returns doctors whose accounts are still active, with names joined
// from the accounts table.
func (r *doctorRepository) List(ctx context.Context) ([]Doctor, error) {
	query := `SELECT d.account_id, d.speciality, d.photo, d.created_at, d.updated_at,
	                 a.name
	          FROM doctors d
	          JOIN accounts a ON a.id = d.account_id
	          WHERE a.active = true
	          ORDER BY a.name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing doctors: %w", err)
	}
	defer rows.Close()

	var doctors []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(
			&d.AccountID, &d.Speciality, &d.Photo,
			&d.CreatedAt, &d.UpdatedAt, &d.Name,
		); err != nil {
			return nil, fmt.Errorf("scanning doctor row: %w", err)
		}
		doctors = append(doctors, d)
	}

	return doctors, rows.Err()
}
