package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/healthify/healthify/internal/apperror"
)

// PatientRepository defines the data access contract for patient profiles.
type PatientRepository interface {
	Create(ctx context.Context, accountID string, createdAt time.Time) error
	FindByAccount(ctx context.Context, accountID string) (*Patient, error)
	UpdateMeasurements(ctx context.Context, accountID string, heightCm, weightKg *float64, updatedAt time.Time) error
}

// patientRepository implements PatientRepository with MariaDB queries.
type patientRepository struct {
	db *sql.DB
}

// NewPatientRepository creates a patient repository backed by the given DB pool.
func NewPatientRepository(db *sql.DB) PatientRepository {
	return &patientRepository{db: db}
}

// Create inserts an empty profile row for a new patient account.
func (r *patientRepository) Create(ctx context.Context, accountID string, createdAt time.Time) error {
	query := `INSERT INTO patients (account_id, created_at, updated_at) VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, accountID, createdAt, createdAt)
	if err != nil {
		return fmt.Errorf("inserting patient profile: %w", err)
	}

	return nil
}

// FindByAccount retrieves the profile for an account.
// Returns apperror.NotFound if the account has no patient profile.
func (r *patientRepository) FindByAccount(ctx context.Context, accountID string) (*Patient, error) {
	query := `SELECT account_id, height_cm, weight_kg, created_at, updated_at
	          FROM patients WHERE account_id = ?`

	p := &Patient{}
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&p.AccountID,
		&p.HeightCm,
		&p.WeightKg,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("patient profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying patient profile: %w", err)
	}

	return p, nil
}

// UpdateMeasurements replaces the stored measurements for an account.
func (r *patientRepository) UpdateMeasurements(ctx context.Context, accountID string, heightCm, weightKg *float64, updatedAt time.Time) error {
	query := `UPDATE patients SET height_cm = ?, weight_kg = ?, updated_at = ? WHERE account_id = ?`

	result, err := r.db.ExecContext(ctx, query, heightCm, weightKg, updatedAt, accountID)
	if err != nil {
		return fmt.Errorf("updating measurements: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("patient profile not found")
	}

	return nil
}
