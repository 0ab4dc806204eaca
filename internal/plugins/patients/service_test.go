package patients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/healthify/healthify/internal/apperror"
)

// mockPatientRepo implements PatientRepository for testing.
type mockPatientRepo struct {
	createFn             func(ctx context.Context, accountID string, createdAt time.Time) error
	findByAccountFn      func(ctx context.Context, accountID string) (*Patient, error)
	updateMeasurementsFn func(ctx context.Context, accountID string, heightCm, weightKg *float64, updatedAt time.Time) error
}

func (m *mockPatientRepo) Create(ctx context.Context, accountID string, createdAt time.Time) error {
	if m.createFn != nil {
		return m.createFn(ctx, accountID, createdAt)
	}
	return nil
}

func (m *mockPatientRepo) FindByAccount(ctx context.Context, accountID string) (*Patient, error) {
	if m.findByAccountFn != nil {
		return m.findByAccountFn(ctx, accountID)
	}
	return nil, apperror.NewNotFound("patient profile not found")
}

func (m *mockPatientRepo) UpdateMeasurements(ctx context.Context, accountID string, heightCm, weightKg *float64, updatedAt time.Time) error {
	if m.updateMeasurementsFn != nil {
		return m.updateMeasurementsFn(ctx, accountID, heightCm, weightKg, updatedAt)
	}
	return nil
}

func ptr(v float64) *float64 { return &v }

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

func TestGet_ComputesBMI(t *testing.T) {
	repo := &mockPatientRepo{
		findByAccountFn: func(ctx context.Context, accountID string) (*Patient, error) {
			return &Patient{AccountID: accountID, HeightCm: ptr(180), WeightKg: ptr(81)}, nil
		},
	}

	svc := NewPatientService(repo)
	p, err := svc.Get(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BMI == nil {
		t.Fatal("expected BMI to be derived")
	}
	// 81 / 1.8^2 = 25.0
	if *p.BMI != 25.0 {
		t.Errorf("expected BMI 25.0, got %v", *p.BMI)
	}
}

func TestGet_NoMeasurementsNoBMI(t *testing.T) {
	repo := &mockPatientRepo{
		findByAccountFn: func(ctx context.Context, accountID string) (*Patient, error) {
			return &Patient{AccountID: accountID, HeightCm: ptr(180)}, nil
		},
	}

	svc := NewPatientService(repo)
	p, err := svc.Get(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BMI != nil {
		t.Errorf("expected no BMI with only height recorded, got %v", *p.BMI)
	}
}

func TestGet_MissingProfile(t *testing.T) {
	svc := NewPatientService(&mockPatientRepo{})
	_, err := svc.Get(context.Background(), "ghost")
	assertAppError(t, err, 404)
}

func TestUpdateMeasurements_Success(t *testing.T) {
	var storedHeight, storedWeight *float64
	repo := &mockPatientRepo{
		updateMeasurementsFn: func(ctx context.Context, accountID string, heightCm, weightKg *float64, updatedAt time.Time) error {
			storedHeight, storedWeight = heightCm, weightKg
			return nil
		},
		findByAccountFn: func(ctx context.Context, accountID string) (*Patient, error) {
			return &Patient{AccountID: accountID, HeightCm: storedHeight, WeightKg: storedWeight}, nil
		},
	}

	svc := NewPatientService(repo)
	p, err := svc.UpdateMeasurements(context.Background(), "acc-1", ptr(170), ptr(65))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if storedHeight == nil || *storedHeight != 170 {
		t.Errorf("expected height 170 stored, got %v", storedHeight)
	}
	if p.BMI == nil {
		t.Error("expected BMI on the returned profile")
	}
}

func TestUpdateMeasurements_OutOfRange(t *testing.T) {
	svc := NewPatientService(&mockPatientRepo{})

	tests := []struct {
		name   string
		height *float64
		weight *float64
	}{
		{"height too low", ptr(99), ptr(70)},
		{"height too high", ptr(251), ptr(70)},
		{"weight too low", ptr(170), ptr(39)},
		{"weight too high", ptr(170), ptr(201)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateMeasurements(context.Background(), "acc-1", tt.height, tt.weight)
			assertAppError(t, err, 400)
		})
	}
}

func TestUpdateMeasurements_BoundaryValuesAccepted(t *testing.T) {
	repo := &mockPatientRepo{
		findByAccountFn: func(ctx context.Context, accountID string) (*Patient, error) {
			return &Patient{AccountID: accountID}, nil
		},
	}
	svc := NewPatientService(repo)

	if _, err := svc.UpdateMeasurements(context.Background(), "acc-1", ptr(MinHeightCm), ptr(MinWeightKg)); err != nil {
		t.Errorf("expected lower bounds to be accepted, got %v", err)
	}
	if _, err := svc.UpdateMeasurements(context.Background(), "acc-1", ptr(MaxHeightCm), ptr(MaxWeightKg)); err != nil {
		t.Errorf("expected upper bounds to be accepted, got %v", err)
	}
}
