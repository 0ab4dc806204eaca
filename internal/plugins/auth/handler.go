package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/healthify/healthify/internal/apperror"
)

// Handler handles HTTP requests for authentication. Handlers are thin:
// they bind the request, validate it, call the service, and render the
// JSON response. No business logic lives here.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Signup registers a patient account (POST /api/v1/auth/signup).
func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if msg := validateSignupRequest(&req); msg != "" {
		return apperror.NewValidation(msg)
	}

	result, err := h.service.Signup(c.Request().Context(), SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		RemoteIP: c.RealIP(),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}

// DoctorSignup enrolls a doctor account (POST /api/v1/auth/doctors).
// Route-level middleware restricts this to administrators.
func (h *Handler) DoctorSignup(c echo.Context) error {
	var req DoctorSignupRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if msg := validateDoctorSignupRequest(&req); msg != "" {
		return apperror.NewValidation(msg)
	}

	result, err := h.service.SignupDoctor(c.Request().Context(), DoctorSignupInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
		Speciality: req.Speciality,
		CreatedBy:  CurrentAccountID(c),
		RemoteIP:   c.RealIP(),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}

// Login authenticates an account (POST /api/v1/auth/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return apperror.NewValidation("email and password are required")
	}

	result, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
		RemoteIP: c.RealIP(),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Session validates a stored token and returns the account with its
// role-specific profile (GET /api/v1/auth/session). Used by clients
// restoring a session on startup instead of forcing a fresh login.
func (h *Handler) Session(c echo.Context) error {
	tokenStr := bearerToken(c)
	if tokenStr == "" {
		return apperror.NewUnauthenticated("you are not logged in, please log in to get access")
	}

	view, err := h.service.Reauthenticate(c.Request().Context(), tokenStr)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, view)
}

// ChangePassword replaces the authenticated account's password
// (PATCH /api/v1/auth/password). Requires the current password and returns
// a fresh token so the client survives its own change.
func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if req.CurrentPassword == "" {
		return apperror.NewValidation("current password is required")
	}
	if msg := validatePassword(req.NewPassword, req.Confirm); msg != "" {
		return apperror.NewValidation(msg)
	}

	result, err := h.service.ChangePassword(c.Request().Context(), CurrentAccountID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// --- Password Reset ---

// ForgotPassword requests a reset email (POST /api/v1/auth/forgot-password).
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if strings.TrimSpace(req.Email) == "" {
		return apperror.NewValidation("email is required")
	}

	if err := h.service.RequestPasswordReset(c.Request().Context(), req.Email, c.RealIP()); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "password reset email sent",
	})
}

// ResetPassword redeems a reset token (POST /api/v1/auth/reset-password/:token).
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if msg := validatePassword(req.Password, req.Confirm); msg != "" {
		return apperror.NewValidation(msg)
	}

	result, err := h.service.ResetPassword(c.Request().Context(), c.Param("token"), req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// --- Admin ---

// ListAccounts returns the paginated account list (GET /api/v1/admin/accounts).
func (h *Handler) ListAccounts(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	accounts, total, err := h.service.ListAccounts(c.Request().Context(), page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"accounts": accounts,
		"total":    total,
		"page":     page,
	})
}

// SetAccountActive toggles an account's active flag
// (PATCH /api/v1/admin/accounts/:id/active).
func (h *Handler) SetAccountActive(c echo.Context) error {
	var req SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	targetID := c.Param("id")
	adminID := CurrentAccountID(c)

	// An admin locking themselves out is almost always a mistake.
	if targetID == adminID && !req.Active {
		return apperror.NewValidation("you cannot deactivate your own account")
	}

	if err := h.service.SetAccountActive(c.Request().Context(), adminID, targetID, req.Active); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"id":     targetID,
		"active": req.Active,
	})
}

// --- Validation helpers ---

// validateSignupRequest performs basic server-side validation on the
// signup body. Returns an error message or empty string.
func validateSignupRequest(req *SignupRequest) string {
	if req.Name == "" {
		return "name is required"
	}
	if len(req.Name) < 2 {
		return "name must be at least 2 characters"
	}
	if len(req.Name) > 100 {
		return "name must be at most 100 characters"
	}
	if req.Email == "" {
		return "email is required"
	}
	if !strings.Contains(req.Email, "@") {
		return "email must be a valid address"
	}
	if len(req.Email) > 255 {
		return "email must be at most 255 characters"
	}
	return validatePassword(req.Password, req.Confirm)
}

// validateDoctorSignupRequest validates the doctor enrollment body.
func validateDoctorSignupRequest(req *DoctorSignupRequest) string {
	if req.Speciality == "" {
		return "speciality is required"
	}
	return validateSignupRequest(&SignupRequest{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Confirm:  req.Confirm,
	})
}

// validatePassword checks the password length bounds and confirmation.
func validatePassword(password, confirm string) string {
	if password == "" {
		return "password is required"
	}
	if len(password) < 8 {
		return "password must be at least 8 characters"
	}
	if len(password) > 128 {
		return "password must be at most 128 characters"
	}
	if password != confirm {
		return "passwords do not match"
	}
	return ""
}
