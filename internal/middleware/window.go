package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coffrefort/vault-gateway/internal/auth"
	"github.com/coffrefort/vault-gateway/internal/model"
)

// WindowSource loads a user's configured access window;
// *repository.WindowRepo satisfies it.
type WindowSource interface {
	Get(ctx context.Context, userID uint64) (model.AccessWindow, error)
}

// timeNow is swapped in tests to pin the wall clock.
var timeNow = time.Now

// RequireAccessWindow gates requests on the caller's configured daily
// access window. This is an enforced pre-condition on document routes,
// not an advisory check: a caller outside their window gets 403 with
// the window bounds in the body. Users with no configured window are
// always admitted, as are users whose stored window fails to parse; a
// corrupt row must never lock an account out entirely. Runs after
// Authenticate.
func RequireAccessWindow(windows WindowSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			w, err := windows.Get(ctx, u.ID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return next(c) // no window configured: always allowed
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "window lookup failed"})
			}

			start, errS := auth.ParseClock(w.StartTime)
			end, errE := auth.ParseClock(w.EndTime)
			if errS != nil || errE != nil {
				c.Logger().Warnf("access window for user %d is unparseable (%q-%q); admitting", u.ID, w.StartTime, w.EndTime)
				return next(c)
			}

			now := auth.ClockOf(timeNow())
			if !auth.Allowed(now, start, end) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":        "outside access window",
					"current_time": now.String(),
					"window_start": w.StartTime,
					"window_end":   w.EndTime,
				})
			}
			return next(c)
		}
	}
}
