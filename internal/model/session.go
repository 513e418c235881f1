package model

import "time"

// Session journals an issued access token in the `sessions` table.
// Only the SHA-256 hash of the token is stored. The journal is
// advisory: token validation is stateless and never consults it, so a
// row here proves issuance for audit purposes but cannot revoke.
type Session struct {
	ID        uint64    // sessions.id
	UserID    uint64    // sessions.user_id
	TokenHash string    // sessions.token_hash
	ExpiresAt time.Time // sessions.expires_at
	CreatedAt time.Time // sessions.created_at
}
