package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/healthify/healthify/internal/apperror"
	"github.com/healthify/healthify/internal/plugins/audit"
	"github.com/healthify/healthify/internal/token"
)

// --- Mock Repository ---

// mockAccountRepo implements AccountRepository for testing.
type mockAccountRepo struct {
	createFn               func(ctx context.Context, account *Account) error
	findByIDFn             func(ctx context.Context, id string) (*Account, error)
	findByEmailFn          func(ctx context.Context, email string) (*Account, error)
	emailExistsFn          func(ctx context.Context, email string) (bool, error)
	updateLastLoginFn      func(ctx context.Context, id string) error
	updatePasswordFn       func(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	setResetTokenFn        func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	findByResetTokenHashFn func(ctx context.Context, tokenHash string, now time.Time) (*Account, error)
	listFn                 func(ctx context.Context, offset, limit int) ([]Account, int, error)
	updateActiveFn         func(ctx context.Context, id string, active bool) error
}

func (m *mockAccountRepo) Create(ctx context.Context, account *Account) error {
	if m.createFn != nil {
		return m.createFn(ctx, account)
	}
	return nil
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*Account, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("account not found")
}

func (m *mockAccountRepo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("account not found")
}

func (m *mockAccountRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.emailExistsFn != nil {
		return m.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (m *mockAccountRepo) UpdateLastLogin(ctx context.Context, id string) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id)
	}
	return nil
}

func (m *mockAccountRepo) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, passwordHash, changedAt)
	}
	return nil
}

func (m *mockAccountRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	if m.setResetTokenFn != nil {
		return m.setResetTokenFn(ctx, id, tokenHash, expiresAt)
	}
	return nil
}

func (m *mockAccountRepo) FindByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*Account, error) {
	if m.findByResetTokenHashFn != nil {
		return m.findByResetTokenHashFn(ctx, tokenHash, now)
	}
	return nil, apperror.NewNotFound("reset token not found")
}

func (m *mockAccountRepo) List(ctx context.Context, offset, limit int) ([]Account, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockAccountRepo) UpdateActive(ctx context.Context, id string, active bool) error {
	if m.updateActiveFn != nil {
		return m.updateActiveFn(ctx, id, active)
	}
	return nil
}

// --- Mock Audit Service ---

// mockAudit implements audit.AuditService and records the actions logged.
type mockAudit struct {
	actions []string
}

func (m *mockAudit) Log(ctx context.Context, entry *audit.Entry) error {
	m.actions = append(m.actions, entry.Action)
	return nil
}

func (m *mockAudit) RecentActivity(ctx context.Context, page int) ([]audit.Entry, int, error) {
	return nil, 0, nil
}

func (m *mockAudit) AccountHistory(ctx context.Context, accountID string) ([]audit.Entry, error) {
	return nil, nil
}

// logged reports whether the given action was recorded.
func (m *mockAudit) logged(action string) bool {
	for _, a := range m.actions {
		if a == action {
			return true
		}
	}
	return false
}

// --- Mock Mail Sender ---

// mockMailSender implements MailSender for testing.
type mockMailSender struct {
	sendFn         func(ctx context.Context, to []string, subject, textBody, htmlBody string) error
	isConfiguredFn func(ctx context.Context) bool
	// Capture fields for assertions.
	lastTo      []string
	lastSubject string
	lastText    string
	sendCount   int
}

func (m *mockMailSender) Send(ctx context.Context, to []string, subject, textBody, htmlBody string) error {
	m.lastTo = to
	m.lastSubject = subject
	m.lastText = textBody
	m.sendCount++
	if m.sendFn != nil {
		return m.sendFn(ctx, to, subject, textBody, htmlBody)
	}
	return nil
}

func (m *mockMailSender) IsConfigured(ctx context.Context) bool {
	if m.isConfiguredFn != nil {
		return m.isConfiguredFn(ctx)
	}
	return true
}

// --- Mock Profile Registries ---

// mockPatientRegistry implements PatientRegistry for testing.
type mockPatientRegistry struct {
	createFn    func(ctx context.Context, accountID string) error
	profileFn   func(ctx context.Context, accountID string) (any, error)
	createCount int
}

func (m *mockPatientRegistry) CreateForAccount(ctx context.Context, accountID string) error {
	m.createCount++
	if m.createFn != nil {
		return m.createFn(ctx, accountID)
	}
	return nil
}

func (m *mockPatientRegistry) ProfileForAccount(ctx context.Context, accountID string) (any, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, accountID)
	}
	return map[string]string{"kind": "patient"}, nil
}

// mockDoctorRegistry implements DoctorRegistry for testing.
type mockDoctorRegistry struct {
	createFn       func(ctx context.Context, accountID, speciality string) error
	profileFn      func(ctx context.Context, accountID string) (any, error)
	lastSpeciality string
}

func (m *mockDoctorRegistry) CreateForAccount(ctx context.Context, accountID, speciality string) error {
	m.lastSpeciality = speciality
	if m.createFn != nil {
		return m.createFn(ctx, accountID, speciality)
	}
	return nil
}

func (m *mockDoctorRegistry) ProfileForAccount(ctx context.Context, accountID string) (any, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, accountID)
	}
	return map[string]string{"kind": "doctor"}, nil
}

// --- Test Helpers ---

// newTestAuthService creates an authService with mocks and a real token
// service (token signing is pure computation, no I/O).
func newTestAuthService(t *testing.T, repo AccountRepository) *authService {
	t.Helper()
	tokens, err := token.New(token.Config{
		Secret: []byte("unit-test-signing-secret-0123456789"),
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}
	return &authService{
		repo:     repo,
		tokens:   tokens,
		audit:    &mockAudit{},
		patients: &mockPatientRegistry{},
		doctors:  &mockDoctorRegistry{},
		resetTTL: 10 * time.Minute,
		now:      time.Now,
	}
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

// assertAppErrorType checks code and the machine-readable type.
func assertAppErrorType(t *testing.T, err error, expectedCode int, expectedType string) {
	t.Helper()
	assertAppError(t, err, expectedCode)
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Type != expectedType {
		t.Errorf("expected error type %q, got %q", expectedType, appErr.Type)
	}
}

// mustHash hashes a password or fails the test.
func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	return hash
}

// --- Signup Tests ---

func TestSignup_Success(t *testing.T) {
	repo := &mockAccountRepo{
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return false, nil
		},
		createFn: func(ctx context.Context, account *Account) error {
			if account.Email != "alice@example.com" {
				t.Errorf("expected email alice@example.com, got %s", account.Email)
			}
			if account.Role != RolePatient {
				t.Errorf("expected patient role, got %s", account.Role)
			}
			if !account.Active {
				t.Error("expected new account to be active")
			}
			if account.PasswordHash == "" {
				t.Error("expected password hash to be set")
			}
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	patients := &mockPatientRegistry{}
	svc.patients = patients
	aud := &mockAudit{}
	svc.audit = aud

	result, err := svc.Signup(context.Background(), SignupInput{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Phone:    "555-0100",
		Password: "secure-password-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token == "" {
		t.Error("expected bearer token to be issued")
	}
	if result.Account.ID == "" {
		t.Error("expected account ID to be generated")
	}
	if patients.createCount != 1 {
		t.Errorf("expected 1 patient profile created, got %d", patients.createCount)
	}
	if !aud.logged(audit.ActionSignup) {
		t.Error("expected signup audit entry")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	repo := &mockAccountRepo{
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return true, nil
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.Signup(context.Background(), SignupInput{
		Name:     "Test",
		Email:    "taken@example.com",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 409)
}

func TestSignup_EmailCheckError(t *testing.T) {
	repo := &mockAccountRepo{
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return false, errors.New("db connection lost")
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.Signup(context.Background(), SignupInput{
		Name:     "Test",
		Email:    "test@example.com",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 500)
}

func TestSignup_EmailNormalization(t *testing.T) {
	var capturedEmail string
	repo := &mockAccountRepo{
		createFn: func(ctx context.Context, account *Account) error {
			capturedEmail = account.Email
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.Signup(context.Background(), SignupInput{
		Name:     "Alice",
		Email:    "  Alice@EXAMPLE.com  ",
		Password: "secure-password-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedEmail != "alice@example.com" {
		t.Errorf("expected normalized email alice@example.com, got %s", capturedEmail)
	}
}

func TestSignupDoctor_Success(t *testing.T) {
	repo := &mockAccountRepo{
		createFn: func(ctx context.Context, account *Account) error {
			if account.Role != RoleDoctor {
				t.Errorf("expected doctor role, got %s", account.Role)
			}
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	doctors := &mockDoctorRegistry{}
	svc.doctors = doctors
	aud := &mockAudit{}
	svc.audit = aud

	result, err := svc.SignupDoctor(context.Background(), DoctorSignupInput{
		Name:       "Dr. Bob",
		Email:      "bob@example.com",
		Password:   "secure-password-123",
		Speciality: "cardiology",
		CreatedBy:  "admin-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token == "" {
		t.Error("expected bearer token for the new doctor")
	}
	if doctors.lastSpeciality != "cardiology" {
		t.Errorf("expected speciality cardiology, got %s", doctors.lastSpeciality)
	}
	if !aud.logged(audit.ActionDoctorSignup) {
		t.Error("expected doctor signup audit entry")
	}
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	hash := mustHash(t, "correct-password")
	var lastLoginUpdated bool
	repo := &mockAccountRepo{
		findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
			return &Account{ID: "acc-1", Email: email, PasswordHash: hash, Role: RolePatient, Active: true}, nil
		},
		updateLastLoginFn: func(ctx context.Context, id string) error {
			lastLoginUpdated = true
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	aud := &mockAudit{}
	svc.audit = aud

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token == "" {
		t.Error("expected bearer token to be issued")
	}
	if !lastLoginUpdated {
		t.Error("expected last login timestamp to be updated")
	}
	if !aud.logged(audit.ActionLogin) {
		t.Error("expected login audit entry")
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := &mockAccountRepo{}

	svc := newTestAuthService(t, repo)
	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	// Unknown email and wrong password are indistinguishable.
	assertAppErrorType(t, err, 401, "invalid_credentials")
}

func TestLogin_WrongPassword(t *testing.T) {
	hash := mustHash(t, "correct-password")
	repo := &mockAccountRepo{
		findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
			return &Account{ID: "acc-1", Email: email, PasswordHash: hash, Active: true}, nil
		},
	}

	svc := newTestAuthService(t, repo)
	aud := &mockAudit{}
	svc.audit = aud

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assertAppErrorType(t, err, 401, "invalid_credentials")
	if !aud.logged(audit.ActionLoginFailed) {
		t.Error("expected failed login audit entry")
	}
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	hash := mustHash(t, "correct-password")
	repo := &mockAccountRepo{
		findByEmailFn: func(ctx context.Context, email string) (*Account, error) {
			return &Account{ID: "acc-1", Email: email, PasswordHash: hash, Active: false}, nil
		},
	}

	svc := newTestAuthService(t, repo)
	// Correct password, but the account is deactivated.
	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	assertAppErrorType(t, err, 401, "account_deactivated")
}

// --- Change Password Tests ---

func TestChangePassword_Success(t *testing.T) {
	hash := mustHash(t, "old-password")
	var updatedHash string
	var changedAtStamp time.Time
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Email: "alice@example.com", PasswordHash: hash, Active: true}, nil
		},
		updatePasswordFn: func(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
			updatedHash = passwordHash
			changedAtStamp = changedAt
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	aud := &mockAudit{}
	svc.audit = aud

	result, err := svc.ChangePassword(context.Background(), "acc-1", "old-password", "new-password-456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verifyPassword("new-password-456", updatedHash) {
		t.Error("expected new password to verify against stored hash")
	}
	if changedAtStamp.IsZero() {
		t.Error("expected password-changed-at timestamp to be set")
	}
	// A fresh token is issued so the caller survives their own change.
	if result.Token == "" {
		t.Error("expected fresh bearer token after password change")
	}
	if _, err := svc.tokens.Verify(result.Token); err != nil {
		t.Errorf("expected fresh token to verify: %v", err)
	}
	if !aud.logged(audit.ActionPasswordChanged) {
		t.Error("expected password change audit entry")
	}
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	hash := mustHash(t, "old-password")
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, PasswordHash: hash, Active: true}, nil
		},
	}

	svc := newTestAuthService(t, repo)
	_, err := svc.ChangePassword(context.Background(), "acc-1", "not-the-password", "new-password-456")
	assertAppErrorType(t, err, 401, "invalid_credentials")
}

// --- Admin Tests ---

func TestSetAccountActive_Success(t *testing.T) {
	var capturedActive bool
	repo := &mockAccountRepo{
		updateActiveFn: func(ctx context.Context, id string, active bool) error {
			capturedActive = active
			return nil
		},
	}

	svc := newTestAuthService(t, repo)
	aud := &mockAudit{}
	svc.audit = aud

	if err := svc.SetAccountActive(context.Background(), "admin-1", "acc-2", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedActive {
		t.Error("expected active=false to be persisted")
	}
	if !aud.logged(audit.ActionActiveChanged) {
		t.Error("expected active change audit entry")
	}
}

func TestSetAccountActive_UnknownAccount(t *testing.T) {
	repo := &mockAccountRepo{
		updateActiveFn: func(ctx context.Context, id string, active bool) error {
			return apperror.NewNotFound("account not found")
		},
	}

	svc := newTestAuthService(t, repo)
	err := svc.SetAccountActive(context.Background(), "admin-1", "ghost", true)
	assertAppError(t, err, 404)
}

// --- Password Hashing Tests ---

func TestHashAndVerifyPassword(t *testing.T) {
	password := "my-secret-password-123"

	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}

	// Correct password should verify.
	if !verifyPassword(password, hash) {
		t.Error("expected correct password to verify")
	}

	// Wrong password should not verify.
	if verifyPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty string", ""},
		{"random text", "not-a-hash"},
		{"too few parts", "$argon2id$v=19$m=65536"},
		{"corrupted salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!invalid$aGFzaA"},
		{"corrupted hash", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$!!!invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if verifyPassword("password", tt.hash) {
				t.Error("expected invalid hash to fail verification")
			}
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	hash1, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	hash2, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash1 == hash2 {
		t.Error("expected different salts to produce different hashes")
	}
}

// --- ConfigureMailSender Tests ---

func TestConfigureMailSender(t *testing.T) {
	svc := newTestAuthService(t, &mockAccountRepo{})

	mail := &mockMailSender{}
	ConfigureMailSender(svc, mail, "https://healthify.example.com")

	if svc.mail != mail {
		t.Error("expected mail sender to be set")
	}
	if svc.baseURL != "https://healthify.example.com" {
		t.Errorf("expected baseURL https://healthify.example.com, got %s", svc.baseURL)
	}
}
