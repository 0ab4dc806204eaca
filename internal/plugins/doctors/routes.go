package doctors

import (
	"github.com/labstack/echo/v4"

	"github.com/healthify/healthify/internal/plugins/auth"
)

// RegisterRoutes sets up the doctor routes. The directory is visible to
// any authenticated account; the profile endpoints require the doctor role.
func RegisterRoutes(e *echo.Echo, h *Handler, svc auth.AuthService) {
	g := e.Group("/api/v1/doctors", auth.RequireAuth(svc))
	g.GET("", h.List)

	me := g.Group("/me", auth.PermitOnly(auth.RoleDoctor))
	me.GET("", h.Me)
	me.PATCH("", h.UpdateMe)
}
