package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Download when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage stores uploaded input files until a run has consumed them.
type ObjectStorage interface {
	// EnsureBucket prepares the bucket (or directory) that holds staged objects.
	EnsureBucket(ctx context.Context) error

	// Upload stores an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens an object for reading. The caller closes the reader.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)
}
