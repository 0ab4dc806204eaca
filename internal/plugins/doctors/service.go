package doctors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/healthify/healthify/internal/apperror"
	"github.com/healthify/healthify/internal/sanitize"
)

// DoctorService handles business logic for doctor profiles. The first two
// methods satisfy the registry contract the auth plugin defines for doctor
// enrollment and session restore.
type DoctorService interface {
	// CreateForAccount creates the profile when an admin enrolls a doctor.
	CreateForAccount(ctx context.Context, accountID, speciality string) error

	// ProfileForAccount loads the profile as the role-specific view for
	// re-authentication.
	ProfileForAccount(ctx context.Context, accountID string) (any, error)

	Get(ctx context.Context, accountID string) (*Doctor, error)
	UpdateProfile(ctx context.Context, accountID, speciality string, photo *string) (*Doctor, error)
	List(ctx context.Context) ([]Doctor, error)
}

// doctorService implements DoctorService.
type doctorService struct {
	repo DoctorRepository

	// now is swappable in tests.
	now func() time.Time
}

// NewDoctorService creates a doctor service with the given repository.
func NewDoctorService(repo DoctorRepository) DoctorService {
	return &doctorService{repo: repo, now: time.Now}
}

// CreateForAccount inserts the profile row for a newly enrolled doctor.
func (s *doctorService) CreateForAccount(ctx context.Context, accountID, speciality string) error {
	speciality = sanitize.Text(speciality)
	if speciality == "" {
		return apperror.NewValidation("speciality is required")
	}

	if err := s.repo.Create(ctx, accountID, speciality, s.now().UTC()); err != nil {
		return fmt.Errorf("creating doctor profile: %w", err)
	}
	return nil
}

// ProfileForAccount loads the profile for the session restore response.
func (s *doctorService) ProfileForAccount(ctx context.Context, accountID string) (any, error) {
	return s.Get(ctx, accountID)
}

// Get returns the profile for an account.
func (s *doctorService) Get(ctx context.Context, accountID string) (*Doctor, error) {
	d, err := s.repo.FindByAccount(ctx, accountID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewNotFound("doctor profile not found")
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading doctor profile: %w", err))
	}
	return d, nil
}

// UpdateProfile validates and stores the editable profile fields, then
// returns the updated profile.
func (s *doctorService) UpdateProfile(ctx context.Context, accountID, speciality string, photo *string) (*Doctor, error) {
	speciality = sanitize.Text(speciality)
	if speciality == "" {
		return nil, apperror.NewValidation("speciality is required")
	}

	if err := s.repo.UpdateProfile(ctx, accountID, speciality, photo, s.now().UTC()); err != nil {
		if isNotFound(err) {
			return nil, apperror.NewNotFound("doctor profile not found")
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating doctor profile: %w", err))
	}

	return s.Get(ctx, accountID)
}

// List returns the directory of active doctors.
func (s *doctorService) List(ctx context.Context) ([]Doctor, error) {
	doctors, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing doctors: %w", err))
	}
	return doctors, nil
}

// isNotFound reports whether err is an apperror with a 404 code.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == http.StatusNotFound
}
