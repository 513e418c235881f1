package auth // package auth provides password hashing, session tokens and the access window policy

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validation failures are split so handlers can answer with a precise
// message: an expired token is a different situation from a forged or
// truncated one.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// AccessToken represents a signed HS256 JWT along with its expiry. The
// Token field contains the serialized JWT string; Exp is the UTC
// expiration time. Tokens are stateless: validity is determined by
// signature and expiry alone, never by a database lookup.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// Claims are the values recovered from a validated token.
type Claims struct {
	UserID uint64
	Email  string
	Role   string
}

// NewAccessToken builds and signs a session token for a user. The JWT
// carries subject (sub), email, role, expiration (exp) and issued at
// (iat). Rotating the signing secret invalidates every outstanding
// token; that is accepted and not mitigated.
func NewAccessToken(secret string, userID uint64, email, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewSSOToken signs a handoff token for the external document management
// service. It is a regular access token with an extra "mayan_user" claim
// set to the user's email, which the remote side uses to map the session
// onto one of its own accounts.
func NewSSOToken(secret string, userID uint64, email, role string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":        userID,
		"email":      email,
		"role":       role,
		"mayan_user": email,
		"exp":        exp.Unix(),
		"iat":        now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ValidateToken parses raw, checks its HS256 signature and expiry, and
// returns the embedded claims. Only the HMAC family of signing methods
// is accepted; a token signed any other way is malformed by definition.
func ValidateToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed
	}
	if !tok.Valid {
		return Claims{}, ErrTokenMalformed
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenMalformed
	}

	var c Claims
	// JWT numbers decode as float64; tolerate numeric strings as well.
	switch sub := mc["sub"].(type) {
	case float64:
		c.UserID = uint64(sub)
	case string:
		n, err := strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return Claims{}, ErrTokenMalformed
		}
		c.UserID = n
	default:
		return Claims{}, ErrTokenMalformed
	}
	c.Email, _ = mc["email"].(string)
	c.Role, _ = mc["role"].(string)
	return c, nil
}

// HashToken returns the SHA-256 hex digest of a serialized token. The
// sessions journal stores only this digest, never the token itself.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
