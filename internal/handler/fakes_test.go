package handler

// In-memory fakes for the handler dependency interfaces. They mimic the
// repository contracts closely: sql.ErrNoRows for absence, sentinel
// errors for duplicates, bcrypt policy enforced on create.

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coffrefort/vault-gateway/internal/auth"
	"github.com/coffrefort/vault-gateway/internal/model"
	"github.com/coffrefort/vault-gateway/internal/queue"
	"github.com/coffrefort/vault-gateway/internal/repository"
)

type fakeUsers struct {
	nextID uint64
	users  map[uint64]model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uint64]model.User{}}
}

func (f *fakeUsers) add(u model.User) model.User {
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now().UTC()
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) Create(_ context.Context, email, password, fullName, role string, cost int) (uint64, error) {
	for _, u := range f.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	u := f.add(model.User{Email: email, PasswordHash: hash, FullName: fullName, Role: role, IsActive: true})
	return u.ID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUsers) List(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint64) error {
	if _, ok := f.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

type fakeSessions struct {
	records []string // token hashes in issuance order
}

func (f *fakeSessions) Record(_ context.Context, _ uint64, tokenHash string, _ time.Time) error {
	f.records = append(f.records, tokenHash)
	return nil
}

type fakeWindows struct {
	windows map[uint64]model.AccessWindow
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{windows: map[uint64]model.AccessWindow{}}
}

func (f *fakeWindows) Replace(_ context.Context, userID uint64, start, end string) error {
	f.windows[userID] = model.AccessWindow{UserID: userID, StartTime: start, EndTime: end}
	return nil
}

func (f *fakeWindows) Get(_ context.Context, userID uint64) (model.AccessWindow, error) {
	w, ok := f.windows[userID]
	if !ok {
		return model.AccessWindow{}, sql.ErrNoRows
	}
	return w, nil
}

type fakeDocs struct {
	nextID uint64
	docs   map[uint64]model.Document
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: map[uint64]model.Document{}}
}

func (f *fakeDocs) add(d model.Document) model.Document {
	f.nextID++
	d.ID = f.nextID
	d.CreatedAt = time.Now().UTC()
	f.docs[d.ID] = d
	return d
}

func (f *fakeDocs) Create(_ context.Context, storageRef, title, description, fileName string, uploadedBy uint64) (uint64, error) {
	d := f.add(model.Document{
		StorageRef:  storageRef,
		Title:       title,
		Description: description,
		FileName:    fileName,
		UploadedBy:  uploadedBy,
	})
	return d.ID, nil
}

func (f *fakeDocs) ListFor(_ context.Context, u *model.User) ([]model.Document, error) {
	var out []model.Document
	for _, d := range f.docs {
		if u.IsAdmin() || d.UploadedBy == u.ID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocs) GetFor(_ context.Context, u *model.User, id uint64) (model.Document, error) {
	d, ok := f.docs[id]
	if !ok || (!u.IsAdmin() && d.UploadedBy != u.ID) {
		return model.Document{}, sql.ErrNoRows
	}
	return d, nil
}

func (f *fakeDocs) Delete(_ context.Context, id uint64) error {
	if _, ok := f.docs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeDocs) SetMayanID(_ context.Context, id, mayanID uint64) error {
	d, ok := f.docs[id]
	if !ok {
		return nil
	}
	d.MayanID = &mayanID
	f.docs[id] = d
	return nil
}

func (f *fakeDocs) SetAnalysis(_ context.Context, id uint64, summary, keywords string) error {
	d, ok := f.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.AISummary = &summary
	d.AIKeywords = &keywords
	f.docs[id] = d
	return nil
}

// fakeEDMS is an in-memory stand-in for the external document manager.
type fakeEDMS struct {
	nextID   uint64
	texts    map[uint64]string // mayan id -> stored content
	uploaded []string          // filenames in upload order
}

func newFakeEDMS() *fakeEDMS {
	return &fakeEDMS{texts: map[uint64]string{}}
}

func (f *fakeEDMS) UploadDocument(_ context.Context, fileName string, content io.Reader) (uint64, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, err
	}
	f.nextID++
	f.texts[f.nextID] = string(data)
	f.uploaded = append(f.uploaded, fileName)
	return f.nextID, nil
}

func (f *fakeEDMS) DocumentText(_ context.Context, docID uint64) (string, error) {
	text, ok := f.texts[docID]
	if !ok {
		return "", errNoSuchMayanDoc
	}
	return text, nil
}

var errNoSuchMayanDoc = errors.New("document not found")

// capturedEvents collects published queue events.
type capturedEvents struct {
	events []queue.DocumentAnalyzedEvent
}

func (ce *capturedEvents) publish(_ context.Context, ev queue.DocumentAnalyzedEvent) error {
	ce.events = append(ce.events, ev)
	return nil
}

// ----- request helpers -----

// formContext builds an echo context carrying form-encoded fields, with
// the given user pre-authenticated.
func formContext(t *testing.T, method, path string, fields url.Values, u *model.User) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(fields.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if u != nil {
		c.Set("user", u)
	}
	return c, rec
}

// multipartContext builds an echo context carrying a multipart upload.
func multipartContext(t *testing.T, path string, fields map[string]string, fileName, fileBody string, u *model.User) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf strings.Builder
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(fileBody)); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(buf.String()))
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if u != nil {
		c.Set("user", u)
	}
	return c, rec
}
