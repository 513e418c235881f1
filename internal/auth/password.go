package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is bcrypt's input limit. Anything longer is rejected
// outright rather than truncated, so the effective password is always
// exactly what the user typed. The same rule applies at hash time and at
// verify time.
const maxPasswordBytes = 72

// ErrPasswordTooLong is returned when a password exceeds the bcrypt
// input limit. Handlers should translate it into an HTTP 400 response.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword returns the bcrypt hash of plain using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
// Oversized inputs fail verification, mirroring the HashPassword policy.
func VerifyPassword(hash, plain string) bool {
	if len(plain) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
