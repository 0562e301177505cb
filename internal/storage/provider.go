// Package storage defines the file-system abstraction for the data directory.
package storage

import (
	"context"
	"io"
)

// Provider is the interface for data-directory file operations.
// All paths are relative to the provider root and may use forward slashes.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// WriteFrom atomically streams r into path, aborting when ctx is done.
	WriteFrom(ctx context.Context, path string, r io.Reader) (int64, error)
	// Delete removes the file at path.
	Delete(path string) error
	// RemoveAll removes path and everything below it. Missing paths are not an error.
	RemoveAll(path string) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Abs resolves path to an absolute file-system path under the root.
	Abs(path string) (string, error)
}
