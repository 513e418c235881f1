package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coffrefort/vault-gateway/internal/config"
	"github.com/coffrefort/vault-gateway/internal/middleware"
	"github.com/coffrefort/vault-gateway/internal/model"
	"github.com/coffrefort/vault-gateway/internal/storage"
)

// DocumentHandler implements upload, listing, retrieval, download and
// deletion of documents. Mayan is optional: when configured, uploads
// are mirrored to it best-effort after the local blob store has
// accepted the file.
type DocumentHandler struct {
	Cfg   config.Config
	Docs  DocumentStore
	Blobs BlobStore
	Mayan EDMS // nil unless MAYAN_ENABLED
}

func NewDocumentHandler(cfg config.Config, d DocumentStore, b BlobStore, m EDMS) *DocumentHandler {
	return &DocumentHandler{Cfg: cfg, Docs: d, Blobs: b, Mayan: m}
}

type documentResp struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileName    string    `json:"file_name"`
	StorageRef  string    `json:"storage_ref"`
	UploadedBy  uint64    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
	AISummary   *string   `json:"ai_summary"`
	AIKeywords  *string   `json:"ai_keywords"`
}

func toDocumentResp(d model.Document) documentResp {
	return documentResp{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		FileName:    d.FileName,
		StorageRef:  d.StorageRef,
		UploadedBy:  d.UploadedBy,
		CreatedAt:   d.CreatedAt,
		AISummary:   d.AISummary,
		AIKeywords:  d.AIKeywords,
	}
}

// Upload accepts a multipart file plus title/description and creates a
// document owned by the caller. The blob is written first; if the
// metadata insert then fails the blob stays behind unreferenced, which
// is acceptable since nothing can reach it without a document row.
func (h *DocumentHandler) Upload(c echo.Context) error {
	u := middleware.CurrentUser(c)
	if h.Cfg.UploadAdminOnly && !u.IsAdmin() {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access required"})
	}

	title := c.FormValue("title")
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	description := c.FormValue("description")

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read file"})
	}
	defer src.Close()

	ref, err := h.Blobs.Save(fh.Filename, src)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store file failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Docs.Create(ctx, ref, title, description, fh.Filename, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create document failed"})
	}

	if h.Mayan != nil {
		go h.mirrorToMayan(id, ref, fh.Filename)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":          id,
		"storage_ref": ref,
		"title":       title,
		"download_url": "/files/" + ref,
	})
}

// mirrorToMayan pushes the stored blob to the EDMS and records the id
// Mayan assigned on the document row, enabling the analyze-file
// fallback that pulls text back from Mayan when the local blob is gone.
// Runs in the background; mirror failures never fail the upload, since
// the local store is authoritative.
func (h *DocumentHandler) mirrorToMayan(docID uint64, ref, fileName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	f, err := h.Blobs.Open(ref)
	if err != nil {
		log.Printf("mayan: reopen blob %s failed: %v", ref, err)
		return
	}
	defer f.Close()
	mayanID, err := h.Mayan.UploadDocument(ctx, fileName, f)
	if err != nil {
		log.Printf("mayan: mirror of %s failed: %v", ref, err)
		return
	}
	if err := h.Docs.SetMayanID(ctx, docID, mayanID); err != nil {
		log.Printf("mayan: record id %d for document %d failed: %v", mayanID, docID, err)
	}
}

// List returns the caller's visible documents: all of them for admins,
// only their own uploads for everyone else.
func (h *DocumentHandler) List(c echo.Context) error {
	u := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	docs, err := h.Docs.ListFor(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]documentResp, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResp(d))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one visible document. Documents outside the caller's
// scope come back 404, not 403, so existence is not leaked.
func (h *DocumentHandler) Get(c echo.Context) error {
	u := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Docs.GetFor(ctx, u, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toDocumentResp(d))
}

// Delete removes a document record (admin only; the route applies the
// gate). The blob itself is left in place: unreferenced blobs are
// garbage, not a leak, and a crash between the two deletes must not
// orphan the metadata row instead.
func (h *DocumentHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Docs.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "document deleted"})
}

// Download streams a stored blob. The requested name is validated
// before any filesystem access; traversal attempts are 400, a missing
// blob is 404. Only blobs referenced by a document visible to the
// caller are served.
func (h *DocumentHandler) Download(c echo.Context) error {
	u := middleware.CurrentUser(c)
	ref := c.Param("name")

	path, err := h.Blobs.Path(ref)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrBadRef):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid filename"})
		case errors.Is(err, os.ErrNotExist):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open file failed"})
		}
	}

	// The blob must belong to a document the caller can see; the scoped
	// lookup below returns nothing for other users' blobs.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	d, err := h.findByRef(ctx, u, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return c.Attachment(path, d.FileName)
}

// findByRef scans the caller's visible documents for one referencing
// ref. Visibility scoping is delegated to ListFor so the rule lives in
// exactly one place.
func (h *DocumentHandler) findByRef(ctx context.Context, u *model.User, ref string) (model.Document, error) {
	docs, err := h.Docs.ListFor(ctx, u)
	if err != nil {
		return model.Document{}, err
	}
	for _, d := range docs {
		if d.StorageRef == ref {
			return d, nil
		}
	}
	return model.Document{}, sql.ErrNoRows
}
