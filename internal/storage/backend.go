// Package storage provides the object backends that hold the dataset cache:
// a local directory (the default) or an S3 bucket shared between benchmark
// hosts.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by Read when no object is stored at the key.
var ErrNotFound = errors.New("object not found")

// Backend defines the interface for dataset cache backends (local, S3, MinIO).
// Keys are slash-separated relative paths.
type Backend interface {
	// Write stores data at key, replacing any previous object.
	Write(ctx context.Context, key string, data []byte) error

	// Read returns the object stored at key, or an error wrapping
	// ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close closes any resources held by the backend
	Close() error

	// Type returns the storage type identifier ("local", "s3")
	Type() string
}
