package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// guardRequest runs one request through RequireAuth (plus any extra
// middleware) and returns the error and the account the handler saw.
func guardRequest(t *testing.T, svc AuthService, authHeader string, extra ...echo.MiddlewareFunc) (error, *Account) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/me", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *Account
	handler := func(c echo.Context) error {
		seen = CurrentAccount(c)
		return c.NoContent(http.StatusOK)
	}
	chain := handler
	for i := len(extra) - 1; i >= 0; i-- {
		chain = extra[i](chain)
	}
	chain = RequireAuth(svc)(chain)

	return chain(c), seen
}

// issueFor mints a real token for the given account id.
func issueFor(t *testing.T, svc *authService, accountID string) string {
	t.Helper()
	tok, err := svc.tokens.Issue(accountID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	svc := newTestAuthService(t, &mockAccountRepo{})
	err, _ := guardRequest(t, svc, "")
	assertAppErrorType(t, err, 401, "unauthenticated")
}

func TestRequireAuth_NotBearer(t *testing.T) {
	svc := newTestAuthService(t, &mockAccountRepo{})
	err, _ := guardRequest(t, svc, "Basic dXNlcjpwYXNz")
	assertAppErrorType(t, err, 401, "unauthenticated")
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	svc := newTestAuthService(t, &mockAccountRepo{})
	err, _ := guardRequest(t, svc, "Bearer not-a-real-token")
	assertAppErrorType(t, err, 401, "unauthenticated")
}

func TestRequireAuth_ValidToken(t *testing.T) {
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Email: "alice@example.com", Role: RolePatient, Active: true}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	tok := issueFor(t, svc, "acc-1")

	err, seen := guardRequest(t, svc, "Bearer "+tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil || seen.ID != "acc-1" {
		t.Errorf("expected account acc-1 in context, got %+v", seen)
	}
}

func TestRequireAuth_AccountGone(t *testing.T) {
	// Token verifies, but the account behind it no longer exists.
	svc := newTestAuthService(t, &mockAccountRepo{})
	tok := issueFor(t, svc, "deleted-acc")

	err, _ := guardRequest(t, svc, "Bearer "+tok)
	assertAppErrorType(t, err, 401, "unauthenticated")
}

func TestRequireAuth_DeactivatedAccount(t *testing.T) {
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Role: RolePatient, Active: false}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	tok := issueFor(t, svc, "acc-1")

	// Deactivation takes effect on the very next request, not at expiry.
	err, _ := guardRequest(t, svc, "Bearer "+tok)
	assertAppErrorType(t, err, 401, "account_deactivated")
}

func TestRequireAuth_StaleToken(t *testing.T) {
	changed := time.Now().Add(time.Hour) // after the token's issued-at
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Role: RolePatient, Active: true, PasswordChangedAt: &changed}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	tok := issueFor(t, svc, "acc-1")

	err, _ := guardRequest(t, svc, "Bearer "+tok)
	assertAppErrorType(t, err, 401, "stale_token")
}

func TestRequireAuth_TokenIssuedAfterChange(t *testing.T) {
	changed := time.Now().Add(-time.Hour) // before the token's issued-at
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Role: RolePatient, Active: true, PasswordChangedAt: &changed}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	tok := issueFor(t, svc, "acc-1")

	if err, _ := guardRequest(t, svc, "Bearer "+tok); err != nil {
		t.Errorf("expected token issued after change to pass, got %v", err)
	}
}

// --- Role Gate Tests ---

func TestPermitOnly_Allowed(t *testing.T) {
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Role: RoleDoctor, Active: true}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	tok := issueFor(t, svc, "doc-1")

	err, _ := guardRequest(t, svc, "Bearer "+tok, PermitOnly(RoleDoctor, RoleAdmin))
	if err != nil {
		t.Errorf("expected doctor through doctor/admin gate, got %v", err)
	}
}

func TestPermitOnly_Forbidden(t *testing.T) {
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Role: RolePatient, Active: true}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	tok := issueFor(t, svc, "acc-1")

	err, _ := guardRequest(t, svc, "Bearer "+tok, PermitOnly(RoleAdmin))
	assertAppErrorType(t, err, 403, "forbidden")
}

func TestPermitOnly_WithoutGuard(t *testing.T) {
	// Gate applied with no authenticated account in context.
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	handler := PermitOnly(RoleAdmin)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assertAppError(t, handler(c), 401)
}

// --- Reauthenticate Ordering and Dispatch ---

func TestReauthenticate_PatientProfile(t *testing.T) {
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Email: "alice@example.com", Role: RolePatient, Active: true}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	svc.patients = &mockPatientRegistry{
		profileFn: func(ctx context.Context, accountID string) (any, error) {
			return map[string]string{"height": "170"}, nil
		},
	}
	tok := issueFor(t, svc, "acc-1")

	view, err := svc.Reauthenticate(context.Background(), tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Role != RolePatient {
		t.Errorf("expected patient role, got %s", view.Role)
	}
	profile, ok := view.Profile.(map[string]string)
	if !ok || profile["height"] != "170" {
		t.Errorf("expected patient profile in view, got %+v", view.Profile)
	}
}

func TestReauthenticate_DoctorProfile(t *testing.T) {
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Role: RoleDoctor, Active: true}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	tok := issueFor(t, svc, "doc-1")

	view, err := svc.Reauthenticate(context.Background(), tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Role != RoleDoctor {
		t.Errorf("expected doctor role, got %s", view.Role)
	}
}

func TestReauthenticate_AdminHasNoProfileView(t *testing.T) {
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Role: RoleAdmin, Active: true}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	tok := issueFor(t, svc, "admin-1")

	_, err := svc.Reauthenticate(context.Background(), tok)
	assertAppError(t, err, 400)
}

func TestReauthenticate_StaleReportedBeforeDeactivated(t *testing.T) {
	// Both conditions hold: the re-auth path reports staleness first, so
	// the client is told to log in again.
	changed := time.Now().Add(time.Hour)
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Role: RolePatient, Active: false, PasswordChangedAt: &changed}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	tok := issueFor(t, svc, "acc-1")

	_, err := svc.Reauthenticate(context.Background(), tok)
	assertAppErrorType(t, err, 401, "stale_token")
}

func TestAuthenticate_DeactivatedReportedBeforeStale(t *testing.T) {
	// The request guard checks the active flag first.
	changed := time.Now().Add(time.Hour)
	repo := &mockAccountRepo{
		findByIDFn: func(ctx context.Context, id string) (*Account, error) {
			return &Account{ID: id, Role: RolePatient, Active: false, PasswordChangedAt: &changed}, nil
		},
	}
	svc := newTestAuthService(t, repo)
	tok := issueFor(t, svc, "acc-1")

	_, err := svc.Authenticate(context.Background(), tok)
	assertAppErrorType(t, err, 401, "account_deactivated")
}

// --- Role Tests ---

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RolePatient, RoleDoctor, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("expected %s to be valid", r)
		}
	}
	for _, r := range []Role{"", "nurse", "Admin", "superuser"} {
		if r.Valid() {
			t.Errorf("expected %q to be invalid", r)
		}
	}
}

func TestPermitted(t *testing.T) {
	if !Permitted(RoleAdmin, RoleDoctor, RoleAdmin) {
		t.Error("expected admin to be permitted")
	}
	if Permitted(RolePatient, RoleDoctor, RoleAdmin) {
		t.Error("expected patient to be rejected")
	}
	if Permitted("", RolePatient) {
		t.Error("expected empty role to be rejected")
	}
	if Permitted(RolePatient) {
		t.Error("expected empty allow list to reject everything")
	}
}
