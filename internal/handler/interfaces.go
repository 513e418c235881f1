package handler

// Handlers depend on narrow interfaces rather than concrete repository
// and client types so each endpoint can be exercised in tests with
// in-memory fakes. The production implementations are the repository
// structs, the storage.Store, the analysis.Client, the mayan.Client and
// the queue publisher function.

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/coffrefort/vault-gateway/internal/analysis"
	"github.com/coffrefort/vault-gateway/internal/model"
	"github.com/coffrefort/vault-gateway/internal/queue"
)

// UserStore is the credential store surface used by handlers.
type UserStore interface {
	Create(ctx context.Context, email, password, fullName, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// SessionStore journals issued tokens.
type SessionStore interface {
	Record(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
}

// WindowStore persists per-user access windows.
type WindowStore interface {
	Replace(ctx context.Context, userID uint64, start, end string) error
	Get(ctx context.Context, userID uint64) (model.AccessWindow, error)
}

// DocumentStore is the ownership-scoped document registry surface.
type DocumentStore interface {
	Create(ctx context.Context, storageRef, title, description, fileName string, uploadedBy uint64) (uint64, error)
	ListFor(ctx context.Context, u *model.User) ([]model.Document, error)
	GetFor(ctx context.Context, u *model.User, id uint64) (model.Document, error)
	Delete(ctx context.Context, id uint64) error
	SetAnalysis(ctx context.Context, id uint64, summary, keywords string) error
	SetMayanID(ctx context.Context, id, mayanID uint64) error
}

// EDMS is the external document-management surface; *mayan.Client
// satisfies it. Handlers hold a nil EDMS when mirroring is disabled.
type EDMS interface {
	UploadDocument(ctx context.Context, fileName string, content io.Reader) (uint64, error)
	DocumentText(ctx context.Context, docID uint64) (string, error)
}

// BlobStore is the local blob storage surface.
type BlobStore interface {
	Save(originalName string, r io.Reader) (string, error)
	Open(ref string) (*os.File, error)
	Path(ref string) (string, error)
}

// Analyzer produces a summary/keyword result for raw text. It never
// fails; degradation is encoded in the result itself.
type Analyzer interface {
	Analyze(ctx context.Context, text string) analysis.Result
}

// PublishFunc publishes a document.analyzed event. Matches
// queue_publisher.PublishDocumentAnalyzed.
type PublishFunc func(ctx context.Context, event queue.DocumentAnalyzedEvent) error
