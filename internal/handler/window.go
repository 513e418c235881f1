package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coffrefort/vault-gateway/internal/auth"
	"github.com/coffrefort/vault-gateway/internal/middleware"
)

// Default window bounds reported for users with no configured row.
const (
	defaultWindowStart = "00:00"
	defaultWindowEnd   = "23:59"
)

// nowClock is swapped in tests to pin the wall clock.
var nowClock = time.Now

// WindowHandler implements access-window administration and the
// informational check-access endpoint. The enforced counterpart lives
// in middleware.RequireAccessWindow.
type WindowHandler struct {
	Users   UserStore
	Windows WindowStore
}

func NewWindowHandler(u UserStore, w WindowStore) *WindowHandler {
	return &WindowHandler{Users: u, Windows: w}
}

type setWindowReq struct {
	UserID    uint64 `json:"user_id" form:"user_id"`
	StartTime string `json:"start_time" form:"start_time"`
	EndTime   string `json:"end_time" form:"end_time"`
}

// Set replaces a user's access window (admin only). Both bounds must be
// valid "HH:MM" strings; start after end is meaningful and wraps past
// midnight.
func (h *WindowHandler) Set(c echo.Context) error {
	var req setWindowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id required"})
	}
	if _, err := auth.ParseClock(req.StartTime); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time, want HH:MM"})
	}
	if _, err := auth.ParseClock(req.EndTime); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time, want HH:MM"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Windows for unknown users would be unreachable rows; reject.
	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Windows.Replace(ctx, req.UserID, req.StartTime, req.EndTime); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save window failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "access window updated"})
}

// Get returns a user's configured window, or the full-day default when
// none is set.
func (h *WindowHandler) Get(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	w, err := h.Windows.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusOK, echo.Map{
				"start_time": defaultWindowStart,
				"end_time":   defaultWindowEnd,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"start_time": w.StartTime, "end_time": w.EndTime})
}

// CheckAccess evaluates the caller's window against the current time.
// Purely informational: clients use it to warn users before the
// enforced middleware starts rejecting their document requests.
func (h *WindowHandler) CheckAccess(c echo.Context) error {
	u := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	w, err := h.Windows.Get(ctx, u.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusOK, echo.Map{"allowed": true})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now := auth.ClockOf(nowClock())
	start, errS := auth.ParseClock(w.StartTime)
	end, errE := auth.ParseClock(w.EndTime)
	allowed := true
	if errS == nil && errE == nil {
		allowed = auth.Allowed(now, start, end)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"allowed":      allowed,
		"current_time": now.String(),
		"window_start": w.StartTime,
		"window_end":   w.EndTime,
	})
}
