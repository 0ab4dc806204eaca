package doctors

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthify/healthify/internal/apperror"
	"github.com/healthify/healthify/internal/plugins/auth"
)

// Handler handles HTTP requests for doctor profiles and the directory.
type Handler struct {
	service DoctorService
}

// NewHandler creates a new doctors handler with the given service.
func NewHandler(service DoctorService) *Handler {
	return &Handler{service: service}
}

// List returns the directory of active doctors (GET /api/v1/doctors).
func (h *Handler) List(c echo.Context) error {
	doctors, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"doctors": doctors,
	})
}

// Me returns the authenticated doctor's profile (GET /api/v1/doctors/me).
func (h *Handler) Me(c echo.Context) error {
	profile, err := h.service.Get(c.Request().Context(), auth.CurrentAccountID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateMe edits the authenticated doctor's profile (PATCH /api/v1/doctors/me).
func (h *Handler) UpdateMe(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	profile, err := h.service.UpdateProfile(c.Request().Context(), auth.CurrentAccountID(c), req.Speciality, req.Photo)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}
