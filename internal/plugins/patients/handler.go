package patients

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthify/healthify/internal/apperror"
	"github.com/healthify/healthify/internal/plugins/auth"
)

// Handler handles HTTP requests for patient profiles.
type Handler struct {
	service PatientService
}

// NewHandler creates a new patients handler with the given service.
func NewHandler(service PatientService) *Handler {
	return &Handler{service: service}
}

// Me returns the authenticated patient's profile (GET /api/v1/patients/me).
func (h *Handler) Me(c echo.Context) error {
	profile, err := h.service.Get(c.Request().Context(), auth.CurrentAccountID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateMeasurements replaces the authenticated patient's body measurements
// (PUT /api/v1/patients/me/measurements).
func (h *Handler) UpdateMeasurements(c echo.Context) error {
	var req MeasurementsRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	profile, err := h.service.UpdateMeasurements(c.Request().Context(), auth.CurrentAccountID(c), req.HeightCm, req.WeightKg)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}
