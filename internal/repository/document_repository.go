package repository

import (
	"context"
	"database/sql"

	"github.com/coffrefort/vault-gateway/internal/model"
)

// DocumentRepo is the ownership-scoped document registry.
type DocumentRepo struct{ DB *sql.DB }

func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{DB: db} }

const documentColumns = "id,storage_ref,title,description,file_name,uploaded_by,created_at,ai_summary,ai_keywords,mayan_id"

// Create inserts a document record and returns its ID.
func (r *DocumentRepo) Create(ctx context.Context, storageRef, title, description, fileName string, uploadedBy uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO documents (storage_ref, title, description, file_name, uploaded_by) VALUES (?,?,?,?,?)",
		storageRef, title, description, fileName, uploadedBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListFor returns the documents visible to u: admins see everything,
// everyone else only their own uploads. The filter lives in the WHERE
// clause so non-owned rows are never fetched, let alone post-filtered;
// a non-admin cannot infer the total count from this call.
func (r *DocumentRepo) ListFor(ctx context.Context, u *model.User) ([]model.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents ORDER BY created_at DESC"
	args := []any{}
	if !u.IsAdmin() {
		query = "SELECT " + documentColumns + " FROM documents WHERE uploaded_by=? ORDER BY created_at DESC"
		args = append(args, u.ID)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetFor fetches one document visible to u. Non-admins can only see
// documents they uploaded; anything else is sql.ErrNoRows, so a caller
// cannot distinguish "not yours" from "does not exist".
func (r *DocumentRepo) GetFor(ctx context.Context, u *model.User, id uint64) (model.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents WHERE id=? LIMIT 1"
	args := []any{id}
	if !u.IsAdmin() {
		query = "SELECT " + documentColumns + " FROM documents WHERE id=? AND uploaded_by=? LIMIT 1"
		args = append(args, u.ID)
	}
	return scanDocument(r.DB.QueryRowContext(ctx, query, args...))
}

// Delete removes a document record. No child rows depend on documents,
// so a plain delete suffices. sql.ErrNoRows when absent.
func (r *DocumentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM documents WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAnalysis stores the outcome of an analysis attempt. Concurrent
// attempts on the same document interleave as last-write-wins, which is
// fine: re-running an analysis just overwrites the previous result.
func (r *DocumentRepo) SetAnalysis(ctx context.Context, id uint64, summary, keywords string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE documents SET ai_summary=?, ai_keywords=? WHERE id=?",
		summary, keywords, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is 0 both for a missing row and an identical
		// rewrite; re-check existence only for the missing case.
		var exists uint64
		if err := r.DB.QueryRowContext(ctx,
			"SELECT id FROM documents WHERE id=? LIMIT 1", id).Scan(&exists); err != nil {
			return err
		}
	}
	return nil
}

// SetMayanID records the id the external EDMS assigned when the blob
// was mirrored. Written from the background mirror goroutine, so a
// missing row (the document was deleted meanwhile) is not an error.
func (r *DocumentRepo) SetMayanID(ctx context.Context, id, mayanID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE documents SET mayan_id=? WHERE id=?", mayanID, id)
	return err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...any) error }

func scanDocument(s scanner) (model.Document, error) {
	var (
		d        model.Document
		summary  sql.NullString
		keywords sql.NullString
		mayanID  sql.NullInt64
	)
	err := s.Scan(&d.ID, &d.StorageRef, &d.Title, &d.Description, &d.FileName,
		&d.UploadedBy, &d.CreatedAt, &summary, &keywords, &mayanID)
	if err != nil {
		return model.Document{}, err
	}
	if summary.Valid {
		d.AISummary = &summary.String
	}
	if keywords.Valid {
		d.AIKeywords = &keywords.String
	}
	if mayanID.Valid {
		id := uint64(mayanID.Int64)
		d.MayanID = &id
	}
	return d, nil
}
