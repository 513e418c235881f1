package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffrefort/vault-gateway/internal/auth"
	"github.com/coffrefort/vault-gateway/internal/config"
	"github.com/coffrefort/vault-gateway/internal/model"
)

const testSecret = "handler-test-secret"

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  testSecret,
		AccessTTL:  30 * time.Minute,
		SSOTTL:     time.Hour,
		BcryptCost: 4, // bcrypt.MinCost keeps the tests fast
	}
}

func TestRegisterIssuesToken(t *testing.T) {
	users := newFakeUsers()
	sessions := &fakeSessions{}
	h := NewAuthHandler(testConfig(), users, sessions)

	c, rec := formContext(t, http.MethodPost, "/auth/register", url.Values{
		"email":     {"Alice@Example.COM"},
		"password":  {"s3cret"},
		"full_name": {"Alice"},
	}, nil)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp tokenResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, model.RoleUser, resp.Role)

	claims, err := auth.ValidateToken(testSecret, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)

	// The issued token was journaled.
	require.Len(t, sessions.records, 1)
	assert.Equal(t, auth.HashToken(resp.AccessToken), sessions.records[0])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newFakeUsers()
	h := NewAuthHandler(testConfig(), users, &fakeSessions{})

	fields := url.Values{
		"email":     {"dup@example.com"},
		"password":  {"s3cret"},
		"full_name": {"Dup"},
	}
	c, rec := formContext(t, http.MethodPost, "/auth/register", fields, nil)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	var first tokenResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	c, rec = formContext(t, http.MethodPost, "/auth/register", fields, nil)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already registered")

	// The failed retry must not invalidate the original account's token.
	_, err := auth.ValidateToken(testSecret, first.AccessToken)
	assert.NoError(t, err)
}

func TestRegisterPasswordTooLong(t *testing.T) {
	h := NewAuthHandler(testConfig(), newFakeUsers(), &fakeSessions{})

	c, rec := formContext(t, http.MethodPost, "/auth/register", url.Values{
		"email":     {"long@example.com"},
		"password":  {strings.Repeat("p", 73)},
		"full_name": {"Long"},
	}, nil)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "password too long")
}

func TestRegisterMissingFields(t *testing.T) {
	h := NewAuthHandler(testConfig(), newFakeUsers(), &fakeSessions{})

	c, rec := formContext(t, http.MethodPost, "/auth/register", url.Values{
		"email": {"noname@example.com"},
	}, nil)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// seedUser registers a user directly through the fake store.
func seedUser(t *testing.T, users *fakeUsers, email, password, role string, active bool) model.User {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	return users.add(model.User{Email: email, PasswordHash: hash, Role: role, IsActive: active})
}

func TestLogin(t *testing.T) {
	users := newFakeUsers()
	seedUser(t, users, "user@example.com", "rightpw", model.RoleUser, true)
	seedUser(t, users, "admin@example.com", "adminpw", model.RoleAdmin, true)
	seedUser(t, users, "off@example.com", "offpw", model.RoleUser, false)
	h := NewAuthHandler(testConfig(), users, &fakeSessions{})

	tests := []struct {
		name     string
		email    string
		password string
		role     string
		wantCode int
		wantErr  string
	}{
		{"valid, no role requested", "user@example.com", "rightpw", "", http.StatusOK, ""},
		{"valid, matching role", "admin@example.com", "adminpw", model.RoleAdmin, http.StatusOK, ""},
		{"valid credentials, wrong role", "user@example.com", "rightpw", model.RoleAdmin, http.StatusForbidden, "role mismatch"},
		{"wrong password", "user@example.com", "wrongpw", "", http.StatusUnauthorized, "invalid credentials"},
		{"unknown email", "ghost@example.com", "whatever", "", http.StatusUnauthorized, "invalid credentials"},
		{"disabled account", "off@example.com", "offpw", "", http.StatusUnauthorized, "account disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := formContext(t, http.MethodPost, "/auth/login", url.Values{
				"email":    {tt.email},
				"password": {tt.password},
				"role":     {tt.role},
			}, nil)
			require.NoError(t, h.Login(c))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Contains(t, rec.Body.String(), tt.wantErr)
			}
		})
	}
}

func TestLoginReturnsValidatableToken(t *testing.T) {
	users := newFakeUsers()
	u := seedUser(t, users, "tok@example.com", "pw123", model.RoleAdmin, true)
	h := NewAuthHandler(testConfig(), users, &fakeSessions{})

	c, rec := formContext(t, http.MethodPost, "/auth/login", url.Values{
		"email":    {"tok@example.com"},
		"password": {"pw123"},
	}, nil)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	claims, err := auth.ValidateToken(testSecret, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}
