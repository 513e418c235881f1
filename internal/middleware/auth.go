package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coffrefort/vault-gateway/internal/auth"
	"github.com/coffrefort/vault-gateway/internal/model"
)

// userKey is the context key under which Authenticate stores the
// resolved *model.User.
const userKey = "user"

// UserResolver loads a user by id; *repository.UserRepo satisfies it.
type UserResolver interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Authenticate returns middleware that resolves the request's bearer
// credential to an active user. The Authorization header is parsed
// defensively: exactly two whitespace-separated parts with a
// case-insensitive "Bearer" scheme, otherwise 401 before the token is
// even looked at. A valid signature is not enough on its own: the
// embedded subject must still resolve to an existing, active user, so
// deleted and deactivated accounts are locked out the moment the next
// request arrives even though their tokens have not expired.
func Authenticate(secret string, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			claims, err := auth.ValidateToken(secret, raw)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					msg = "token expired"
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				// Token decoded fine but the subject is unknown.
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown subject"})
			}
			if !u.IsActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
			}

			c.Set(userKey, &u)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header value.
// Anything other than exactly "Bearer <token>" (scheme matched
// case-insensitively) is rejected.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// CurrentUser returns the user stored by Authenticate, or nil when the
// request did not pass through it.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}
