package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffrefort/vault-gateway/internal/auth"
	"github.com/coffrefort/vault-gateway/internal/model"
)

const testSecret = "test-secret"

// fakeResolver serves users from a map, like UserRepo without a database.
type fakeResolver struct {
	users map[uint64]model.User
}

func (f *fakeResolver) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func activeUser(id uint64, role string) model.User {
	return model.User{ID: id, Email: "u@example.com", Role: role, IsActive: true}
}

// runAuth sends one request with the given Authorization header through
// Authenticate and a probe handler that records the resolved user.
func runAuth(t *testing.T, header string, resolver UserResolver) (*httptest.ResponseRecorder, *model.User) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *model.User
	h := Authenticate(testSecret, resolver)(func(c echo.Context) error {
		seen = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, seen
}

func issue(t *testing.T, userID uint64, role string, ttl time.Duration) string {
	t.Helper()
	at, err := auth.NewAccessToken(testSecret, userID, "u@example.com", role, ttl)
	require.NoError(t, err)
	return at.Token
}

func TestAuthenticate_HeaderParsing(t *testing.T) {
	resolver := &fakeResolver{users: map[uint64]model.User{1: activeUser(1, model.RoleUser)}}
	tok := issue(t, 1, model.RoleUser, time.Minute)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "scheme only", header: "Bearer", want: http.StatusUnauthorized},
		{name: "three parts", header: "Bearer " + tok + " trailing", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + tok, want: http.StatusUnauthorized},
		{name: "bare token without scheme", header: tok, want: http.StatusUnauthorized},
		{name: "canonical", header: "Bearer " + tok, want: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + tok, want: http.StatusOK},
		{name: "shouting scheme", header: "BEARER " + tok, want: http.StatusOK},
		{name: "extra whitespace", header: "Bearer   " + tok, want: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := runAuth(t, tc.header, resolver)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAuthenticate_ResolvesUser(t *testing.T) {
	resolver := &fakeResolver{users: map[uint64]model.User{7: activeUser(7, model.RoleAdmin)}}
	rec, seen := runAuth(t, "Bearer "+issue(t, 7, model.RoleAdmin, time.Minute), resolver)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, uint64(7), seen.ID)
	assert.Equal(t, model.RoleAdmin, seen.Role)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	resolver := &fakeResolver{users: map[uint64]model.User{1: activeUser(1, model.RoleUser)}}
	rec, _ := runAuth(t, "Bearer "+issue(t, 1, model.RoleUser, -time.Minute), resolver)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestAuthenticate_UnknownSubject(t *testing.T) {
	// Valid signature, but the user no longer exists.
	resolver := &fakeResolver{users: map[uint64]model.User{}}
	rec, _ := runAuth(t, "Bearer "+issue(t, 99, model.RoleUser, time.Minute), resolver)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	inactive := activeUser(3, model.RoleUser)
	inactive.IsActive = false
	resolver := &fakeResolver{users: map[uint64]model.User{3: inactive}}
	rec, _ := runAuth(t, "Bearer "+issue(t, 3, model.RoleUser, time.Minute), resolver)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "account disabled")
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	run := func(u *model.User) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if u != nil {
			c.Set(userKey, u)
		}
		h := RequireAdmin()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
		require.NoError(t, h(c))
		return rec.Code
	}

	admin := activeUser(1, model.RoleAdmin)
	user := activeUser(2, model.RoleUser)
	assert.Equal(t, http.StatusOK, run(&admin))
	assert.Equal(t, http.StatusForbidden, run(&user))
	assert.Equal(t, http.StatusUnauthorized, run(nil))
}
