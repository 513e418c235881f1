package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coffrefort/vault-gateway/internal/model"
)

// RequireRole returns middleware enforcing that the authenticated user
// holds one of the given roles. It must run after Authenticate. A
// mismatch is 403, never a silent downgrade of the request's scope.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireAdmin gates admin-only operations.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(model.RoleAdmin)
}
