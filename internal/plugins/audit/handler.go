package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for the admin audit feed. Handlers are
// thin: they bind the request, call the service, and render the response.
type Handler struct {
	service AuditService
}

// NewHandler creates a new audit handler with the given service.
func NewHandler(service AuditService) *Handler {
	return &Handler{service: service}
}

// RecentActivity returns the paginated audit feed (GET /api/v1/admin/audit).
func (h *Handler) RecentActivity(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	entries, total, err := h.service.RecentActivity(c.Request().Context(), page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
		"page":    page,
	})
}

// AccountHistory returns the audit history for one account
// (GET /api/v1/admin/accounts/:id/audit).
func (h *Handler) AccountHistory(c echo.Context) error {
	entries, err := h.service.AccountHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entries": entries,
	})
}
