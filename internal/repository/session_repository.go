package repository

import (
	"context"
	"database/sql"
	"time"
)

// SessionRepo journals issued access tokens in the 'sessions' table
// (single 'token_hash' column, never the token itself). Token
// validation is stateless and does not read this table; the journal
// exists for audit. That asymmetry is deliberate and documented: a row
// here proves a token was issued but cannot revoke it.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Record inserts a journal row for a freshly issued token.
func (r *SessionRepo) Record(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, expiresAt)
	return err
}

// PurgeExpired removes journal rows whose token expired before cutoff.
// Intended for periodic housekeeping; never called on a request path.
func (r *SessionRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
