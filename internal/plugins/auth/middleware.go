package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/healthify/healthify/internal/apperror"
)

// Context keys for storing session data in Echo context. Other plugins use
// these keys (via the exported getter functions below) to access the
// authenticated account.
const (
	contextKeyAccount   = "auth_account"
	contextKeyAccountID = "auth_account_id"
)

// RequireAuth returns middleware that resolves the Authorization bearer
// token to a live account and injects it into the request context. The
// account's existence, active flag, and password-change staleness are
// re-checked on every request -- deactivation and password changes take
// effect immediately, not at token expiry.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := bearerToken(c)
			if tokenStr == "" {
				return apperror.NewUnauthenticated("you are not logged in, please log in to get access")
			}

			account, err := service.Authenticate(c.Request().Context(), tokenStr)
			if err != nil {
				return err
			}

			// Store the account in context for downstream handlers.
			c.Set(contextKeyAccount, account)
			c.Set(contextKeyAccountID, account.ID)

			return next(c)
		}
	}
}

// PermitOnly returns middleware that rejects authenticated accounts whose
// role is not in the allowed set. Must run after RequireAuth.
func PermitOnly(allowed ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account := CurrentAccount(c)
			if account == nil {
				return apperror.NewUnauthenticated("you are not logged in, please log in to get access")
			}

			if !Permitted(account.Role, allowed...) {
				return apperror.NewForbidden("you do not have permission to perform this action")
			}

			return next(c)
		}
	}
}

// --- Exported getters for other plugins ---

// CurrentAccount retrieves the authenticated account from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func CurrentAccount(c echo.Context) *Account {
	account, ok := c.Get(contextKeyAccount).(*Account)
	if !ok {
		return nil
	}
	return account
}

// CurrentAccountID retrieves the authenticated account's ID from the Echo
// context. Returns empty string if the request is not authenticated.
func CurrentAccountID(c echo.Context) string {
	id, ok := c.Get(contextKeyAccountID).(string)
	if !ok {
		return ""
	}
	return id
}

// --- Helpers ---

// bearerToken extracts the token from the Authorization header. Returns
// empty string if the header is missing or not a Bearer credential.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	tok, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(tok)
}
