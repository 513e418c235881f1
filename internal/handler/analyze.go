package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coffrefort/vault-gateway/internal/analysis"
	"github.com/coffrefort/vault-gateway/internal/middleware"
	"github.com/coffrefort/vault-gateway/internal/model"
	"github.com/coffrefort/vault-gateway/internal/queue"
	"github.com/coffrefort/vault-gateway/internal/storage"
)

// maxExtractBytes bounds how much of a stored blob is read for the
// file-based analysis variant. The analyzer truncates to a 2000-rune
// prefix anyway, so reading more would be wasted I/O.
const maxExtractBytes = 64 << 10

// AnalyzeHandler triggers AI analysis of a document's text and persists
// the outcome. Only the owner or an admin may trigger analysis; the
// scoped document lookup enforces that.
type AnalyzeHandler struct {
	Docs    DocumentStore
	Blobs   BlobStore
	AI      Analyzer
	Mayan   EDMS // nil unless MAYAN_ENABLED
	Publish PublishFunc
}

func NewAnalyzeHandler(d DocumentStore, b BlobStore, ai Analyzer, m EDMS, pub PublishFunc) *AnalyzeHandler {
	return &AnalyzeHandler{Docs: d, Blobs: b, AI: ai, Mayan: m, Publish: pub}
}

type analyzeReq struct {
	DocumentID uint64 `json:"document_id" form:"document_id"`
	Text       string `json:"text" form:"text"`
}

// Analyze runs the analyzer over caller-supplied text and stores the
// result on the document. A degraded result (service unreachable) is
// persisted and returned like any other: the record always reflects
// the last attempt, and the request never fails because the model did.
func (h *AnalyzeHandler) Analyze(c echo.Context) error {
	u := middleware.CurrentUser(c)

	var req analyzeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.DocumentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "document_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	doc, err := h.Docs.GetFor(ctx, u, req.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return h.runAnalysis(c, u, doc, req.Text)
}

// AnalyzeFile is the file-based variant: it reads the document's stored
// blob as plain text and delegates to the same analysis path. Rich
// formats would need format-specific extraction, which is an external
// concern; bytes are treated as UTF-8 text here.
func (h *AnalyzeHandler) AnalyzeFile(c echo.Context) error {
	u := middleware.CurrentUser(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid document id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	doc, err := h.Docs.GetFor(ctx, u, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	text, err := h.documentText(c.Request().Context(), doc)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrBadRef) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read file failed"})
	}
	return h.runAnalysis(c, u, doc, text)
}

// documentText reads the document's stored blob. When the local blob is
// gone but the document was mirrored, the text is pulled back from the
// EDMS copy instead, so a pruned storage directory does not make
// mirrored documents unanalyzable.
func (h *AnalyzeHandler) documentText(ctx context.Context, doc model.Document) (string, error) {
	f, err := h.Blobs.Open(doc.StorageRef)
	if err != nil {
		if h.Mayan != nil && doc.MayanID != nil {
			text, mErr := h.Mayan.DocumentText(ctx, *doc.MayanID)
			if mErr != nil {
				log.Printf("analyze: mayan fallback for document %d failed: %v", doc.ID, mErr)
				return "", err
			}
			return text, nil
		}
		return "", err
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, maxExtractBytes))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// runAnalysis calls the analyzer, persists the outcome, publishes the
// audit event and answers the client. The analyzer call deliberately
// uses the raw request context: the 60s client timeout inside the
// analyzer is the bound, not the 5s database budget.
func (h *AnalyzeHandler) runAnalysis(c echo.Context, u *model.User, doc model.Document, text string) error {
	res := h.AI.Analyze(c.Request().Context(), text)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Docs.SetAnalysis(ctx, doc.ID, res.Summary, res.Keywords); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save analysis failed"})
	}

	if h.Publish != nil {
		ev := queue.DocumentAnalyzedEvent{
			DocumentID:   doc.ID,
			UserID:       u.ID,
			Title:        doc.Title,
			Keywords:     res.Keywords,
			SummaryChars: len(res.Summary),
			Failed:       res.Failed(),
			AnalyzedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if err := h.Publish(c.Request().Context(), ev); err != nil {
			log.Printf("analyze: publish event for document %d failed: %v", doc.ID, err)
		}
	}

	return c.JSON(http.StatusOK, analysis.Result{Summary: res.Summary, Keywords: res.Keywords})
}
