// Package storage defines the FileStore interface for small documents kept
// on local disk or in an S3-compatible object store.
//
// Agent profiles are stored through it as one YAML document per agent, so
// the server and the CLI read and write the same backend.
package storage

import (
	"context"
	"errors"
	"io/fs"
)

// FileStore is a minimal interface for document-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read returns the full content of the named file.
	// If the file does not exist, an error wrapping fs.ErrNotExist is returned.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write replaces the content of the named file.
	// Parent directories are created automatically.
	Write(ctx context.Context, path string, data []byte) error

	// Delete removes the named file.
	// If the file does not exist, Delete returns nil (idempotent).
	Delete(ctx context.Context, path string) error

	// List returns the names of the files directly under dir, sorted.
	// A missing dir yields an empty list.
	List(ctx context.Context, dir string) ([]string, error)
}

// IsNotExist reports whether err means a file is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
