// Package storage is the local blob store: uploaded files live flat
// under a single configured root directory. Stored names are generated
// server-side; the client-supplied filename never decides placement and
// is only kept in the document record for display.
package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrBadRef is returned for storage references that are not a bare
// filename: anything containing a path separator, a traversal sequence
// or an absolute-path marker. The check runs before any filesystem
// access.
var ErrBadRef = errors.New("invalid storage reference")

// Store saves and serves blobs under root.
type Store struct{ root string }

// New creates the root directory if needed and returns a Store.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Save writes r to a new file under the root and returns its storage
// reference: 32 random hex characters plus the sanitized extension of
// the original filename. Random names make collisions and client-chosen
// placement impossible.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	ref := strings.ReplaceAll(uuid.NewString(), "-", "") + sanitizeExt(originalName)
	f, err := os.OpenFile(filepath.Join(s.root, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return ref, nil
}

// Open returns a handle on a stored blob. The caller closes it.
func (s *Store) Open(ref string) (*os.File, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Path validates ref and returns the absolute path of the blob under
// the root. It fails with ErrBadRef before touching the filesystem and
// with os.ErrNotExist when the blob is missing.
func (s *Store) Path(ref string) (string, error) {
	if err := validateRef(ref); err != nil {
		return "", err
	}
	path := filepath.Join(s.root, ref)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", ErrBadRef
	}
	return path, nil
}

func validateRef(ref string) error {
	if ref == "" ||
		strings.Contains(ref, "..") ||
		strings.ContainsAny(ref, `/\`) ||
		filepath.IsAbs(ref) {
		return ErrBadRef
	}
	return nil
}

// sanitizeExt keeps the extension of name only when it is a dot
// followed by short plain alphanumerics; everything else is dropped.
func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
