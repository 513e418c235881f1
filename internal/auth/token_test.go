package auth

import (
	"errors"
	"testing"
	"time"
)

func TestNewAccessToken_ValidatesBack(t *testing.T) {
	at, err := NewAccessToken("test-secret", 42, "alice@example.com", "admin", 30*time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if at.Token == "" {
		t.Fatalf("expected a non-empty token")
	}
	if remaining := time.Until(at.Exp); remaining < 29*time.Minute || remaining > 30*time.Minute {
		t.Errorf("expected expiry about 30m out, got %v", remaining)
	}

	claims, err := ValidateToken("test-secret", at.Token)
	if err != nil {
		t.Fatalf("failed to validate freshly issued token: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected UserID 42, got %d", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("expected email claim to round-trip, got %q", claims.Email)
	}
	if claims.Role != "admin" {
		t.Errorf("expected role claim to round-trip, got %q", claims.Role)
	}
}

func TestValidateToken_Failures(t *testing.T) {
	tests := []struct {
		name  string
		token func() string
		want  error
	}{
		{
			name: "expired token",
			token: func() string {
				at, _ := NewAccessToken("test-secret", 1, "a@b.c", "user", -time.Minute)
				return at.Token
			},
			want: ErrTokenExpired,
		},
		{
			name: "wrong secret",
			token: func() string {
				at, _ := NewAccessToken("other-secret", 1, "a@b.c", "user", time.Minute)
				return at.Token
			},
			want: ErrTokenMalformed,
		},
		{
			name:  "garbage",
			token: func() string { return "not.a.jwt" },
			want:  ErrTokenMalformed,
		},
		{
			name:  "empty",
			token: func() string { return "" },
			want:  ErrTokenMalformed,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateToken("test-secret", tc.token())
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateToken_BeforeAndAtExpiry(t *testing.T) {
	// A token with a generous TTL validates now; the same claims with a
	// TTL that has already elapsed fail with Expired.
	live, _ := NewAccessToken("test-secret", 7, "a@b.c", "user", time.Hour)
	if _, err := ValidateToken("test-secret", live.Token); err != nil {
		t.Errorf("expected live token to validate, got: %v", err)
	}
	dead, _ := NewAccessToken("test-secret", 7, "a@b.c", "user", 0)
	if _, err := ValidateToken("test-secret", dead.Token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired at expiry, got: %v", err)
	}
}

func TestNewSSOToken_CarriesMayanUser(t *testing.T) {
	at, err := NewSSOToken("test-secret", 9, "bob@example.com", "user", time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	claims, err := ValidateToken("test-secret", at.Token)
	if err != nil {
		t.Fatalf("failed to validate sso token: %v", err)
	}
	if claims.UserID != 9 || claims.Email != "bob@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	a := HashToken("abc")
	b := HashToken("abc")
	if a != b {
		t.Errorf("expected identical digests for identical input")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if HashToken("abd") == a {
		t.Errorf("expected different input to produce a different digest")
	}
}
