package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coffrefort/vault-gateway/internal/auth"
	"github.com/coffrefort/vault-gateway/internal/config"
	"github.com/coffrefort/vault-gateway/internal/middleware"
)

// SSOHandler issues handoff tokens for the external document management
// service.
type SSOHandler struct {
	Cfg config.Config
}

func NewSSOHandler(cfg config.Config) *SSOHandler { return &SSOHandler{Cfg: cfg} }

// Token signs a one-hour SSO token embedding the caller's email and
// returns it together with a ready-to-open Mayan URL.
func (h *SSOHandler) Token(c echo.Context) error {
	u := middleware.CurrentUser(c)

	tok, err := auth.NewSSOToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role, h.Cfg.SSOTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"sso_token": tok.Token,
		"mayan_url": h.Cfg.MayanURL + "?token=" + tok.Token,
	})
}
