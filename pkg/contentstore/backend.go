package contentstore

import (
	"context"
	"fmt"
)

// Backend is a pluggable byte-storage capability keyed by content hash.
// Retrieve returns (nil, nil) when no blob exists for the hash; Locate
// returns the locator of the stored blob, or "" when absent, regardless of
// the extension it was first stored under. Remote or object-store backends
// can substitute for the local filesystem without changing the Store
// contract.
type Backend interface {
	Store(ctx context.Context, path string, data []byte) error
	Retrieve(ctx context.Context, hash string) ([]byte, error)
	Exists(ctx context.Context, hash string) (bool, error)
	Locate(ctx context.Context, hash string) (string, error)
	Delete(ctx context.Context, hash string) (bool, error)
	GetStoragePath(hash string, ext string) string
}

// StorageError reports a backend IO failure. Storage failures are fatal to
// the enclosing upload and must propagate.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
