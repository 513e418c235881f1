package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffrefort/vault-gateway/internal/auth"
	"github.com/coffrefort/vault-gateway/internal/model"
)

func TestSSOToken(t *testing.T) {
	cfg := testConfig()
	cfg.MayanURL = "http://mayan.local"
	h := NewSSOHandler(cfg)
	u := model.User{ID: 8, Email: "sso@example.com", Role: model.RoleUser, IsActive: true}

	c, rec := formContext(t, http.MethodPost, "/mayan/sso-token", nil, &u)
	require.NoError(t, h.Token(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		SSOToken string `json:"sso_token"`
		MayanURL string `json:"mayan_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "http://mayan.local?token="+body.SSOToken, body.MayanURL)

	// The handoff token is a normal signed token that also carries the
	// caller's email for the EDMS side.
	claims, err := auth.ValidateToken(testSecret, body.SSOToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	parsed, err := jwt.Parse(body.SSOToken, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	mc := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "sso@example.com", mc["mayan_user"])
}
