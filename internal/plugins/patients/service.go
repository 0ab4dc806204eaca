package patients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/healthify/healthify/internal/apperror"
)

// PatientService handles business logic for patient profiles. The first
// two methods satisfy the registry contract the auth plugin defines for
// signup and session restore.
type PatientService interface {
	// CreateForAccount creates the empty profile at signup.
	CreateForAccount(ctx context.Context, accountID string) error

	// ProfileForAccount loads the profile as the role-specific view for
	// re-authentication.
	ProfileForAccount(ctx context.Context, accountID string) (any, error)

	Get(ctx context.Context, accountID string) (*Patient, error)
	UpdateMeasurements(ctx context.Context, accountID string, heightCm, weightKg *float64) (*Patient, error)
}

// patientService implements PatientService.
type patientService struct {
	repo PatientRepository

	// now is swappable in tests.
	now func() time.Time
}

// NewPatientService creates a patient service with the given repository.
func NewPatientService(repo PatientRepository) PatientService {
	return &patientService{repo: repo, now: time.Now}
}

// CreateForAccount inserts the empty profile row for a new patient.
func (s *patientService) CreateForAccount(ctx context.Context, accountID string) error {
	if err := s.repo.Create(ctx, accountID, s.now().UTC()); err != nil {
		return fmt.Errorf("creating patient profile: %w", err)
	}
	return nil
}

// ProfileForAccount loads the profile for the session restore response.
func (s *patientService) ProfileForAccount(ctx context.Context, accountID string) (any, error) {
	return s.Get(ctx, accountID)
}

// Get returns the profile with the derived BMI filled in.
func (s *patientService) Get(ctx context.Context, accountID string) (*Patient, error) {
	p, err := s.repo.FindByAccount(ctx, accountID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewNotFound("patient profile not found")
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading patient profile: %w", err))
	}

	p.ComputeBMI()
	return p, nil
}

// UpdateMeasurements validates and stores new body measurements, then
// returns the updated profile with its recomputed BMI.
func (s *patientService) UpdateMeasurements(ctx context.Context, accountID string, heightCm, weightKg *float64) (*Patient, error) {
	if heightCm != nil && (*heightCm < MinHeightCm || *heightCm > MaxHeightCm) {
		return nil, apperror.NewValidation(fmt.Sprintf("height must be between %.0f and %.0f cm", MinHeightCm, MaxHeightCm))
	}
	if weightKg != nil && (*weightKg < MinWeightKg || *weightKg > MaxWeightKg) {
		return nil, apperror.NewValidation(fmt.Sprintf("weight must be between %.0f and %.0f kg", MinWeightKg, MaxWeightKg))
	}

	if err := s.repo.UpdateMeasurements(ctx, accountID, heightCm, weightKg, s.now().UTC()); err != nil {
		if isNotFound(err) {
			return nil, apperror.NewNotFound("patient profile not found")
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating measurements: %w", err))
	}

	return s.Get(ctx, accountID)
}

// isNotFound reports whether err is an apperror with a 404 code.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == http.StatusNotFound
}
