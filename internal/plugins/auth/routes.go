package auth

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/healthify/healthify/internal/middleware"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// The session guard and role gate are exported separately for other plugins
// to use on their own route groups.
//
// Credential endpoints are rate-limited per IP to slow brute-force and
// credential stuffing: 10 login attempts per minute, 5 signups, 3 reset
// requests.
func RegisterRoutes(e *echo.Echo, h *Handler, svc AuthService, rdb *redis.Client) {
	g := e.Group("/api/v1/auth")

	// Public routes -- no session required.
	g.POST("/signup", h.Signup, middleware.RateLimit(rdb, "signup", 5, time.Minute))
	g.POST("/login", h.Login, middleware.RateLimit(rdb, "login", 10, time.Minute))
	g.POST("/forgot-password", h.ForgotPassword, middleware.RateLimit(rdb, "forgot", 3, time.Minute))
	g.POST("/reset-password/:token", h.ResetPassword)

	// Session restore carries its own token and does its own checks.
	g.GET("/session", h.Session)

	// Authenticated routes.
	authed := g.Group("", RequireAuth(svc))
	authed.PATCH("/password", h.ChangePassword)
	authed.POST("/doctors", h.DoctorSignup, PermitOnly(RoleAdmin))

	// Admin account management.
	admin := e.Group("/api/v1/admin", RequireAuth(svc), PermitOnly(RoleAdmin))
	admin.GET("/accounts", h.ListAccounts)
	admin.PATCH("/accounts/:id/active", h.SetAccountActive)
}
