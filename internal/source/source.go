// Package source provides the file handles a run reads its input CSV files from.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/timmy/nlsql-console/internal/domain"
	"github.com/timmy/nlsql-console/internal/storage"
)

// ObjectScheme prefixes file references that point into object storage.
const ObjectScheme = "obj://"

// LocalFile is a file on the local filesystem.
type LocalFile struct {
	path string
}

// NewLocalFile creates a handle for the file at path.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

// Name returns the base name of the file.
func (f *LocalFile) Name() string {
	return filepath.Base(f.path)
}

// Path returns the file path as given.
func (f *LocalFile) Path() string {
	return f.path
}

// Open opens the file for reading.
func (f *LocalFile) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.path, err)
	}
	return file, nil
}

// ObjectFile is a file staged in object storage.
type ObjectFile struct {
	store storage.ObjectStorage
	key   string
	name  string
	size  int64
}

// NewObjectFile creates a handle for an object. An empty name uses the key's base name.
func NewObjectFile(store storage.ObjectStorage, key, name string, size int64) *ObjectFile {
	if name == "" {
		name = filepath.Base(key)
	}
	return &ObjectFile{store: store, key: key, name: name, size: size}
}

// Name returns the original file name.
func (f *ObjectFile) Name() string {
	return f.name
}

// Key returns the storage key.
func (f *ObjectFile) Key() string {
	return f.key
}

// Size returns the object size in bytes, or 0 if unknown.
func (f *ObjectFile) Size() int64 {
	return f.size
}

// Open downloads the object for reading.
func (f *ObjectFile) Open(ctx context.Context) (io.ReadCloser, error) {
	return f.store.Download(ctx, f.key)
}

// Resolve turns a file reference into a handle. References starting with
// ObjectScheme are object storage keys and require store; anything else is a local path.
func Resolve(ref string, store storage.ObjectStorage) (domain.FileHandle, error) {
	if key, ok := strings.CutPrefix(ref, ObjectScheme); ok {
		if store == nil {
			return nil, fmt.Errorf("object storage is not configured for %s", ref)
		}
		if key == "" {
			return nil, fmt.Errorf("empty object key in %s", ref)
		}
		return NewObjectFile(store, key, "", 0), nil
	}
	if ref == "" {
		return nil, fmt.Errorf("empty file reference")
	}
	return NewLocalFile(ref), nil
}
