package patients

import (
	"github.com/labstack/echo/v4"

	"github.com/healthify/healthify/internal/plugins/auth"
)

// RegisterRoutes sets up the patient routes. Everything here requires a
// session and the patient role.
func RegisterRoutes(e *echo.Echo, h *Handler, svc auth.AuthService) {
	g := e.Group("/api/v1/patients", auth.RequireAuth(svc), auth.PermitOnly(auth.RolePatient))
	g.GET("/me", h.Me)
	g.PUT("/me/measurements", h.UpdateMeasurements)
}
