package mailer

import "github.com/labstack/echo/v4"

// RegisterRoutes sets up the admin SMTP endpoints. Auth middleware is
// injected by the caller so this plugin stays decoupled from auth.
func RegisterRoutes(e *echo.Echo, h *Handler, mw ...echo.MiddlewareFunc) {
	admin := e.Group("/api/v1/admin/smtp", mw...)

	admin.GET("", h.GetSettings)
	admin.PUT("", h.UpdateSettings)
	admin.POST("/test", h.TestConnection)
}
