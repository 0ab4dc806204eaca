package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthify/healthify/internal/plugins/audit"
	"github.com/healthify/healthify/internal/plugins/auth"
	"github.com/healthify/healthify/internal/plugins/doctors"
	"github.com/healthify/healthify/internal/plugins/mailer"
	"github.com/healthify/healthify/internal/plugins/patients"
	"github.com/healthify/healthify/internal/token"
)

// RegisterRoutes constructs each plugin's repository/service/handler stack
// and registers all routes. This is the single place where the dependency
// graph is assembled: when a new plugin is added, it is wired here.
func (a *App) RegisterRoutes() error {
	e := a.Echo

	// Health check endpoint for Docker health monitoring.
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Token service ---
	tokens, err := token.New(token.Config{
		Secret: []byte(a.Config.Auth.SecretKey),
		TTL:    a.Config.Auth.TokenTTL,
	})
	if err != nil {
		return err
	}

	// --- Audit plugin ---
	auditRepo := audit.NewAuditRepository(a.DB)
	auditSvc := audit.NewAuditService(auditRepo)
	auditHandler := audit.NewHandler(auditSvc)

	// --- Patients plugin ---
	patientRepo := patients.NewPatientRepository(a.DB)
	patientSvc := patients.NewPatientService(patientRepo)
	patientHandler := patients.NewHandler(patientSvc)

	// --- Doctors plugin ---
	doctorRepo := doctors.NewDoctorRepository(a.DB)
	doctorSvc := doctors.NewDoctorService(doctorRepo)
	doctorHandler := doctors.NewHandler(doctorSvc)

	// --- Auth plugin ---
	accountRepo := auth.NewAccountRepository(a.DB)
	authSvc := auth.NewAuthService(accountRepo, tokens, auditSvc, patientSvc, doctorSvc, a.Config.Auth.ResetTokenTTL)
	authHandler := auth.NewHandler(authSvc)

	// --- Mailer plugin ---
	mailerRepo := mailer.NewSettingsRepository(a.DB)
	mailerSvc := mailer.NewMailerService(mailerRepo, a.Config.Auth.SecretKey)
	mailerHandler := mailer.NewHandler(mailerSvc)

	// Auth sends password reset and welcome emails through the mailer.
	// Wired late because mailer and auth are constructed independently.
	auth.ConfigureMailSender(authSvc, mailerSvc, a.Config.BaseURL)

	// --- Routes ---
	auth.RegisterRoutes(e, authHandler, authSvc, a.Redis)
	patients.RegisterRoutes(e, patientHandler, authSvc)
	doctors.RegisterRoutes(e, doctorHandler, authSvc)

	// Admin-only plugins take auth middleware by injection so they stay
	// decoupled from the auth package.
	adminOnly := []echo.MiddlewareFunc{
		auth.RequireAuth(authSvc),
		auth.PermitOnly(auth.RoleAdmin),
	}
	audit.RegisterRoutes(e, auditHandler, adminOnly...)
	mailer.RegisterRoutes(e, mailerHandler, adminOnly...)

	return nil
}
