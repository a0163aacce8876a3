// Package blobstore keeps the original uploaded bytes on local disk.
package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"govpal/internal/apperr"
	"govpal/internal/domain"
)

// Dir writes blobs as flat files inside one directory.
type Dir struct {
	root string
}

var _ domain.BlobStore = (*Dir)(nil)

// NewDir creates root if needed.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperr.Wrap(err, apperr.KindPersistence, "creating storage directory", apperr.Field("dir", root))
	}
	return &Dir{root: root}, nil
}

// Root returns the storage directory.
func (d *Dir) Root() string { return d.root }

// Save writes content under name and returns the written path. Path
// separators in name are flattened so a blob can never escape root.
func (d *Dir) Save(_ context.Context, name string, content []byte) (string, error) {
	safe := SafeName(name)
	if safe == "" {
		return "", apperr.New(apperr.KindValidation, "empty blob name")
	}
	path := filepath.Join(d.root, safe)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", apperr.Wrap(err, apperr.KindPersistence, "writing blob", apperr.Field("path", path))
	}
	return path, nil
}

// BlobName is the storage name for a document's original file.
func BlobName(docID, filename string) string {
	return docID + "_" + filename
}

// SafeName flattens path separators and strips leading dots.
func SafeName(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	return strings.TrimLeft(name, ".")
}
