package doctors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/healthify/healthify/internal/apperror"
)

// mockDoctorRepo implements DoctorRepository for testing.
type mockDoctorRepo struct {
	createFn        func(ctx context.Context, accountID, speciality string, createdAt time.Time) error
	findByAccountFn func(ctx context.Context, accountID string) (*Doctor, error)
	updateProfileFn func(ctx context.Context, accountID, speciality string, photo *string, updatedAt time.Time) error
	listFn          func(ctx context.Context) ([]Doctor, error)
}

func (m *mockDoctorRepo) Create(ctx context.Context, accountID, speciality string, createdAt time.Time) error {
	if m.createFn != nil {
		return m.createFn(ctx, accountID, speciality, createdAt)
	}
	return nil
}

func (m *mockDoctorRepo) FindByAccount(ctx context.Context, accountID string) (*Doctor, error) {
	if m.findByAccountFn != nil {
		return m.findByAccountFn(ctx, accountID)
	}
	return nil, apperror.NewNotFound("doctor profile not found")
}

func (m *mockDoctorRepo) UpdateProfile(ctx context.Context, accountID, speciality string, photo *string, updatedAt time.Time) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, accountID, speciality, photo, updatedAt)
	}
	return nil
}

func (m *mockDoctorRepo) List(ctx context.Context) ([]Doctor, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func TestCreateForAccount_TrimsSpeciality(t *testing.T) {
	var stored string
	repo := &mockDoctorRepo{
		createFn: func(ctx context.Context, accountID, speciality string, createdAt time.Time) error {
			stored = speciality
			return nil
		},
	}

	svc := NewDoctorService(repo)
	if err := svc.CreateForAccount(context.Background(), "acc-1", "  cardiology  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != "cardiology" {
		t.Errorf("expected trimmed speciality, got %q", stored)
	}
}

func TestCreateForAccount_EmptySpeciality(t *testing.T) {
	svc := NewDoctorService(&mockDoctorRepo{})
	err := svc.CreateForAccount(context.Background(), "acc-1", "   ")
	assertAppError(t, err, 400)
}

func TestGet_MissingProfile(t *testing.T) {
	svc := NewDoctorService(&mockDoctorRepo{})
	_, err := svc.Get(context.Background(), "ghost")
	assertAppError(t, err, 404)
}

func TestUpdateProfile_Success(t *testing.T) {
	photo := "avatars/doc-1.jpg"
	repo := &mockDoctorRepo{
		updateProfileFn: func(ctx context.Context, accountID, speciality string, p *string, updatedAt time.Time) error {
			if speciality != "dermatology" {
				t.Errorf("expected dermatology, got %s", speciality)
			}
			if p == nil || *p != photo {
				t.Errorf("expected photo %q, got %v", photo, p)
			}
			return nil
		},
		findByAccountFn: func(ctx context.Context, accountID string) (*Doctor, error) {
			return &Doctor{AccountID: accountID, Speciality: "dermatology", Photo: &photo}, nil
		},
	}

	svc := NewDoctorService(repo)
	d, err := svc.UpdateProfile(context.Background(), "acc-1", "dermatology", &photo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Speciality != "dermatology" {
		t.Errorf("expected updated profile back, got %+v", d)
	}
}

func TestUpdateProfile_MissingProfile(t *testing.T) {
	repo := &mockDoctorRepo{
		updateProfileFn: func(ctx context.Context, accountID, speciality string, photo *string, updatedAt time.Time) error {
			return apperror.NewNotFound("doctor profile not found")
		},
	}

	svc := NewDoctorService(repo)
	_, err := svc.UpdateProfile(context.Background(), "ghost", "cardiology", nil)
	assertAppError(t, err, 404)
}

func TestList_RepositoryError(t *testing.T) {
	repo := &mockDoctorRepo{
		listFn: func(ctx context.Context) ([]Doctor, error) {
			return nil, errors.New("db connection lost")
		},
	}

	svc := NewDoctorService(repo)
	_, err := svc.List(context.Background())
	assertAppError(t, err, 500)
}
