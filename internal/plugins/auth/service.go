package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/healthify/healthify/internal/apperror"
	"github.com/healthify/healthify/internal/plugins/audit"
	"github.com/healthify/healthify/internal/sanitize"
	"github.com/healthify/healthify/internal/token"
)

// accountsPerPage is the page size for the admin account list.
const accountsPerPage = 50

// argon2id parameters tuned for a self-hosted application running on
// modest hardware (2-4 CPU cores, 2-4 GB RAM). These follow OWASP
// recommendations for argon2id: memory=64MB, iterations=3, parallelism=4.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB in KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// MailSender is the outbound email contract. The mailer plugin satisfies it;
// it is defined here so this package never imports the mailer directly.
type MailSender interface {
	Send(ctx context.Context, to []string, subject, textBody, htmlBody string) error
	IsConfigured(ctx context.Context) bool
}

// PatientRegistry creates and loads the patient profile tied to an account.
// Satisfied by the patients plugin.
type PatientRegistry interface {
	CreateForAccount(ctx context.Context, accountID string) error
	ProfileForAccount(ctx context.Context, accountID string) (any, error)
}

// DoctorRegistry creates and loads the doctor profile tied to an account.
// Satisfied by the doctors plugin.
type DoctorRegistry interface {
	CreateForAccount(ctx context.Context, accountID, speciality string) error
	ProfileForAccount(ctx context.Context, accountID string) (any, error)
}

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*AuthResult, error)
	SignupDoctor(ctx context.Context, input DoctorSignupInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) (*AuthResult, error)

	// Authenticate resolves a bearer token to a live account: signature,
	// TTL, existence, active flag, and password-change staleness are all
	// checked on every call.
	Authenticate(ctx context.Context, tokenStr string) (*Account, error)

	// Reauthenticate is Authenticate plus the role-specific profile view,
	// used by clients restoring a stored token on startup.
	Reauthenticate(ctx context.Context, tokenStr string) (*SessionView, error)

	// Password reset flow.
	RequestPasswordReset(ctx context.Context, email, remoteIP string) error
	ResetPassword(ctx context.Context, plainToken, newPassword string) (*AuthResult, error)

	// Admin operations.
	ListAccounts(ctx context.Context, page int) ([]Account, int, error)
	SetAccountActive(ctx context.Context, adminID, accountID string, active bool) error
}

// authService implements AuthService with argon2id hashing and stateless
// signed bearer tokens.
type authService struct {
	repo     AccountRepository
	tokens   *token.Service
	audit    audit.AuditService
	patients PatientRegistry
	doctors  DoctorRegistry

	// Mail is optional -- configured after construction once the mailer
	// plugin is wired. Reset emails degrade to a logged warning without it.
	mail    MailSender
	baseURL string

	resetTTL time.Duration

	// now is swappable in tests to pin the clock.
	now func() time.Time
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(
	repo AccountRepository,
	tokens *token.Service,
	auditSvc audit.AuditService,
	patients PatientRegistry,
	doctors DoctorRegistry,
	resetTTL time.Duration,
) AuthService {
	return &authService{
		repo:     repo,
		tokens:   tokens,
		audit:    auditSvc,
		patients: patients,
		doctors:  doctors,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// ConfigureMailSender attaches an outbound mail sender and the public base
// URL used to build reset links. Called during startup wiring once the
// mailer plugin is initialized.
func ConfigureMailSender(svc AuthService, mail MailSender, baseURL string) {
	if s, ok := svc.(*authService); ok {
		s.mail = mail
		s.baseURL = baseURL
	}
}

// Signup creates a patient account. It validates uniqueness, hashes the
// password with argon2id, persists the account, and creates the empty
// patient profile. Returns a fresh bearer token so the client is logged in
// immediately.
func (s *authService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	// Check if email is already taken before doing expensive hashing.
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("an account with this email already exists")
	}

	account, err := s.createAccount(ctx, email, input.Name, input.Phone, input.Password, RolePatient)
	if err != nil {
		return nil, err
	}

	if err := s.patients.CreateForAccount(ctx, account.ID); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating patient profile: %w", err))
	}

	// Welcome email is best-effort.
	s.sendWelcomeEmail(ctx, account)

	s.record(ctx, account.ID, audit.ActionSignup, input.RemoteIP, map[string]any{
		"email": account.Email,
	})

	slog.Info("account registered",
		slog.String("account_id", account.ID),
		slog.String("email", account.Email),
		slog.String("role", string(account.Role)),
	)

	return s.issueResult(account)
}

// SignupDoctor creates a doctor account on behalf of an administrator.
// The route-level role gate ensures only admins reach this.
func (s *authService) SignupDoctor(ctx context.Context, input DoctorSignupInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("an account with this email already exists")
	}

	account, err := s.createAccount(ctx, email, input.Name, input.Phone, input.Password, RoleDoctor)
	if err != nil {
		return nil, err
	}

	if err := s.doctors.CreateForAccount(ctx, account.ID, input.Speciality); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating doctor profile: %w", err))
	}

	s.sendWelcomeEmail(ctx, account)

	s.record(ctx, account.ID, audit.ActionDoctorSignup, input.RemoteIP, map[string]any{
		"email":      account.Email,
		"created_by": input.CreatedBy,
	})

	slog.Info("doctor enrolled",
		slog.String("account_id", account.ID),
		slog.String("email", account.Email),
		slog.String("created_by", input.CreatedBy),
	)

	return s.issueResult(account)
}

// createAccount hashes the password and inserts the account row. Shared by
// the two signup paths.
func (s *authService) createAccount(ctx context.Context, email, name, phone, password string, role Role) (*Account, error) {
	// Hash the password with argon2id (memory-hard, GPU-resistant).
	hash, err := hashPassword(password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	// Strip HTML from free-text fields: the name is later interpolated
	// into HTML email bodies.
	account := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         sanitize.Text(name),
		Phone:        strings.TrimSpace(phone),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating account: %w", err))
	}

	return account, nil
}

// Login authenticates an account by email and password. On success it
// returns a fresh bearer token.
func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	// Find account by email. Returns apperror.NotFound if no match.
	account, err := s.repo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		// Don't reveal whether the email exists -- use the generic failure.
		if isNotFound(err) {
			return nil, apperror.NewInvalidCredentials()
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding account: %w", err))
	}

	// Deactivated accounts can't log in regardless of the password.
	if !account.Active {
		return nil, apperror.NewAccountDeactivated()
	}

	// Verify the password against the stored argon2id hash.
	if !verifyPassword(input.Password, account.PasswordHash) {
		s.record(ctx, account.ID, audit.ActionLoginFailed, input.RemoteIP, nil)
		return nil, apperror.NewInvalidCredentials()
	}

	// Update the last login timestamp (fire-and-forget, non-critical).
	if err := s.repo.UpdateLastLogin(ctx, account.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
	}

	s.record(ctx, account.ID, audit.ActionLogin, input.RemoteIP, nil)

	slog.Info("account logged in",
		slog.String("account_id", account.ID),
		slog.String("email", account.Email),
	)

	return s.issueResult(account)
}

// ChangePassword verifies the current password and replaces it. All tokens
// issued before this call become stale; the returned token is issued after
// the change timestamp, so the caller stays logged in.
func (s *authService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) (*AuthResult, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewUnauthenticated("the account belonging to this session no longer exists")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding account: %w", err))
	}

	if !verifyPassword(currentPassword, account.PasswordHash) {
		return nil, apperror.NewInvalidCredentials()
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	// Second precision matches the token issued-at granularity, so the
	// fresh token issued below never looks older than this change.
	changedAt := s.now().UTC().Truncate(time.Second)
	if err := s.repo.UpdatePassword(ctx, account.ID, hash, changedAt); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}
	account.PasswordHash = hash
	account.PasswordChangedAt = &changedAt

	s.record(ctx, account.ID, audit.ActionPasswordChanged, "", nil)

	slog.Info("password changed", slog.String("account_id", account.ID))

	return s.issueResult(account)
}

// Authenticate resolves a bearer token to a live account. Every check runs
// on every request -- a token outlives none of the account-side conditions.
func (s *authService) Authenticate(ctx context.Context, tokenStr string) (*Account, error) {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil, apperror.NewUnauthenticated("invalid token or token expired, please log in again")
	}

	account, err := s.repo.FindByID(ctx, claims.AccountID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewUnauthenticated("the account belonging to this token no longer exists")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding account: %w", err))
	}

	if !account.Active {
		return nil, apperror.NewAccountDeactivated()
	}

	if account.PasswordChangedAfter(claims.IssuedAt) {
		return nil, apperror.NewStaleToken()
	}

	return account, nil
}

// Reauthenticate validates a stored token and returns the account together
// with its role-specific profile. The staleness check runs before the
// active check here: a client holding a pre-change token should be told to
// log in again rather than that the account is deactivated.
func (s *authService) Reauthenticate(ctx context.Context, tokenStr string) (*SessionView, error) {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil, apperror.NewUnauthenticated("invalid token or token expired, please log in again")
	}

	account, err := s.repo.FindByID(ctx, claims.AccountID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewUnauthenticated("the account belonging to this token no longer exists")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding account: %w", err))
	}

	if account.PasswordChangedAfter(claims.IssuedAt) {
		return nil, apperror.NewStaleToken()
	}

	if !account.Active {
		return nil, apperror.NewAccountDeactivated()
	}

	var profile any
	switch account.Role {
	case RolePatient:
		profile, err = s.patients.ProfileForAccount(ctx, account.ID)
	case RoleDoctor:
		profile, err = s.doctors.ProfileForAccount(ctx, account.ID)
	default:
		return nil, apperror.NewBadRequest("no profile view exists for this role")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("loading %s profile: %w", account.Role, err))
	}

	return &SessionView{
		Role:    account.Role,
		Account: account,
		Profile: profile,
	}, nil
}

// --- Admin Operations ---

// ListAccounts returns a paginated account list for administrators.
// Pages are 1-indexed. Invalid page numbers are clamped to 1.
func (s *authService) ListAccounts(ctx context.Context, page int) ([]Account, int, error) {
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * accountsPerPage
	accounts, total, err := s.repo.List(ctx, offset, accountsPerPage)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing accounts: %w", err))
	}

	return accounts, total, nil
}

// SetAccountActive toggles the active flag on an account. Deactivation
// takes effect on the target's very next authenticated request.
func (s *authService) SetAccountActive(ctx context.Context, adminID, accountID string, active bool) error {
	if err := s.repo.UpdateActive(ctx, accountID, active); err != nil {
		if isNotFound(err) {
			return apperror.NewNotFound("account not found")
		}
		return apperror.NewInternal(fmt.Errorf("updating active flag: %w", err))
	}

	s.record(ctx, accountID, audit.ActionActiveChanged, "", map[string]any{
		"active":     active,
		"changed_by": adminID,
	})

	slog.Info("account active flag changed",
		slog.String("account_id", accountID),
		slog.Bool("active", active),
		slog.String("changed_by", adminID),
	)

	return nil
}

// --- Helpers ---

// issueResult mints a fresh bearer token for the account.
func (s *authService) issueResult(account *Account) (*AuthResult, error) {
	tok, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing token: %w", err))
	}
	return &AuthResult{Token: tok, Account: account}, nil
}

// record writes an audit entry, fire-and-forget. The audit service logs
// its own failures.
func (s *authService) record(ctx context.Context, accountID, action, remoteIP string, details map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Log(ctx, &audit.Entry{
		AccountID: accountID,
		Action:    action,
		RemoteIP:  remoteIP,
		Details:   details,
	})
}

// sendWelcomeEmail greets a new account. Failures never fail the signup.
func (s *authService) sendWelcomeEmail(ctx context.Context, account *Account) {
	if s.mail == nil || !s.mail.IsConfigured(ctx) {
		return
	}

	subject := "Welcome to Healthify"
	text := fmt.Sprintf("Hi %s,\n\nYour Healthify account is ready. You can now sign in with your email address.\n", account.Name)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your Healthify account is ready. You can now sign in with your email address.</p>", account.Name)

	if err := s.mail.Send(ctx, []string{account.Email}, subject, text, html); err != nil {
		slog.Warn("failed to send welcome email",
			slog.String("account_id", account.ID),
			slog.Any("error", err),
		)
	}
}

// normalizeEmail lower-cases and trims an email address. Every lookup and
// insert goes through this so case variations hit the same account.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isNotFound reports whether err is an apperror with a 404 code.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == http.StatusNotFound
}

// --- Password Hashing (argon2id) ---

// hashPassword creates an argon2id hash of the given password. The output
// format is: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
// This format is compatible with most argon2 libraries and allows self-
// contained verification without separate salt storage.
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	// Encode to the standard PHC string format.
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, b64Salt, b64Hash)

	return encoded, nil
}

// verifyPassword checks a plaintext password against an argon2id hash string.
// Returns true if the password matches.
func verifyPassword(password, encodedHash string) bool {
	// Parse the encoded hash to extract parameters, salt, and hash.
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Compute the hash of the provided password with the same parameters.
	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Constant-time comparison to prevent timing attacks.
	return subtle.ConstantTimeCompare(expectedHash, computedHash) == 1
}
