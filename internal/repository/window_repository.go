package repository

import (
	"context"
	"database/sql"

	"github.com/coffrefort/vault-gateway/internal/model"
)

// WindowRepo persists per-user daily access windows. At most one row
// exists per user.
type WindowRepo struct{ DB *sql.DB }

func NewWindowRepo(db *sql.DB) *WindowRepo { return &WindowRepo{DB: db} }

// Replace swaps the user's window for a new one. Delete and insert run
// in one transaction so a concurrent reader never observes the gap
// between the old row disappearing and the new one landing; the net
// effect is last-writer-wins.
func (r *WindowRepo) Replace(ctx context.Context, userID uint64, start, end string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM access_windows WHERE user_id=?", userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO access_windows (user_id, start_time, end_time) VALUES (?,?,?)",
		userID, start, end); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns the user's configured window, or sql.ErrNoRows when none
// is set (which callers must treat as "always allowed").
func (r *WindowRepo) Get(ctx context.Context, userID uint64) (model.AccessWindow, error) {
	var w model.AccessWindow
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,start_time,end_time,created_at FROM access_windows WHERE user_id=? LIMIT 1",
		userID).
		Scan(&w.ID, &w.UserID, &w.StartTime, &w.EndTime, &w.CreatedAt)
	return w, err
}
