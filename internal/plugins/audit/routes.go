package audit

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the admin audit routes on the given Echo instance.
// The caller supplies the session guard and admin role gate so this package
// stays decoupled from the auth plugin.
func RegisterRoutes(e *echo.Echo, h *Handler, mw ...echo.MiddlewareFunc) {
	admin := e.Group("/api/v1/admin", mw...)
	admin.GET("/audit", h.RecentActivity)
	admin.GET("/accounts/:id/audit", h.AccountHistory)
}
