package mailer

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthify/healthify/internal/apperror"
)

// Handler handles HTTP requests for SMTP settings management.
type Handler struct {
	service MailerService
}

// NewHandler creates a new mailer handler.
func NewHandler(service MailerService) *Handler {
	return &Handler{service: service}
}

// GetSettings handles GET /api/v1/admin/smtp.
func (h *Handler) GetSettings(c echo.Context) error {
	settings, err := h.service.GetSettings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/v1/admin/smtp.
func (h *Handler) UpdateSettings(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if err := h.service.UpdateSettings(c.Request().Context(), req); err != nil {
		return err
	}

	settings, err := h.service.GetSettings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// TestConnection handles POST /api/v1/admin/smtp/test.
func (h *Handler) TestConnection(c echo.Context) error {
	if err := h.service.TestConnection(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "SMTP connection successful",
	})
}
