package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coffrefort/vault-gateway/internal/auth"
	"github.com/coffrefort/vault-gateway/internal/config"
	"github.com/coffrefort/vault-gateway/internal/model"
	"github.com/coffrefort/vault-gateway/internal/repository"
)

// AuthHandler bundles dependencies for the credential endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions SessionStore
}

func NewAuthHandler(cfg config.Config, u UserStore, s SessionStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	FullName string `json:"full_name" form:"full_name"`
}

type loginReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role" form:"role"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      uint64 `json:"user_id"`
	Role        string `json:"role"`
	Email       string `json:"email,omitempty"`
}

// Register creates a user with role "user" and returns a session token
// immediately, so registration doubles as the first login.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password/full_name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, req.FullName, model.RoleUser, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		case errors.Is(err, auth.ErrPasswordTooLong):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "password too long"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
	}

	tok, err := h.issueAndJournal(ctx, uid, req.Email, model.RoleUser)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusCreated, tokenResp{
		AccessToken: tok.Token,
		TokenType:   "bearer",
		UserID:      uid,
		Role:        model.RoleUser,
	})
}

// Login verifies credentials and, additionally, that the stored role
// matches the requested one: bad credentials are 401, a valid login
// asking for the wrong role is 403.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
	}
	if req.Role != "" && u.Role != req.Role {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "role mismatch"})
	}

	tok, err := h.issueAndJournal(ctx, u.ID, u.Email, u.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{
		AccessToken: tok.Token,
		TokenType:   "bearer",
		UserID:      u.ID,
		Role:        u.Role,
		Email:       u.Email,
	})
}

// issueAndJournal signs a token and records it in the sessions journal.
// The journal is advisory, so a failed journal write is logged but does
// not void the freshly issued token.
func (h *AuthHandler) issueAndJournal(ctx context.Context, uid uint64, email, role string) (auth.AccessToken, error) {
	tok, err := auth.NewAccessToken(h.Cfg.JWTSecret, uid, email, role, h.Cfg.AccessTTL)
	if err != nil {
		return auth.AccessToken{}, err
	}
	if err := h.Sessions.Record(ctx, uid, auth.HashToken(tok.Token), tok.Exp); err != nil {
		log.Printf("auth: session journal write failed for user %d: %v", uid, err)
	}
	return tok, nil
}
