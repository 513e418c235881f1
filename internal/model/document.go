package model

import "time"

// Document models a row in the `documents` table. StorageRef is the
// server-generated opaque name of the blob under the storage root; the
// client-supplied filename is retained for display only and never
// decides placement. Ownership (UploadedBy) is permanent.
//
// AISummary and AIKeywords are nil until the first analysis attempt and
// afterwards always reflect the last attempt, including the failure
// sentinel when the analysis service was unreachable.
//
// MayanID is set once the background mirror to the external EDMS
// succeeds; it stays nil when mirroring is disabled or failed.
type Document struct {
	ID          uint64    // documents.id
	StorageRef  string    // documents.storage_ref
	Title       string    // documents.title
	Description string    // documents.description
	FileName    string    // documents.file_name (display only)
	UploadedBy  uint64    // documents.uploaded_by (users.id)
	CreatedAt   time.Time // documents.created_at
	AISummary   *string   // documents.ai_summary (nullable)
	AIKeywords  *string   // documents.ai_keywords (nullable)
	MayanID     *uint64   // documents.mayan_id (nullable)
}
