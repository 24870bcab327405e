// Package document keeps uploaded files and their records. An owner who
// uploads the same content twice gets a second record over the first blob.
package document

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store keeps uploaded blobs by name.
type Store interface {
	// Put writes r to a new blob and returns its name and size. ext is
	// appended to the generated name.
	Put(ext string, r io.Reader) (string, int64, error)
	Open(name string) (io.ReadCloser, error)
	// Remove deletes name. A missing blob is not an error.
	Remove(name string) error
}

// DirStore keeps blobs as files in one directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a DirStore over dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("document: create %s: %w", dir, err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) Put(ext string, r io.Reader) (string, int64, error) {
	name := "file-" + uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("document: create blob: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("document: write blob: %w", err)
	}
	return name, n, nil
}

func (s *DirStore) Open(name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, fs.ErrNotExist
	}
	return os.Open(filepath.Join(s.dir, name))
}

func (s *DirStore) Remove(name string) error {
	if !validName(name) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("document: remove blob: %w", err)
	}
	return nil
}

// validName rejects names that would escape the store directory.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

// extension returns the lowercased extension of an uploaded file name, or
// "" when it is missing or implausible.
func extension(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
