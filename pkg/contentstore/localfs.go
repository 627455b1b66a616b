package contentstore

import (
	"context"
	"os"
	"path/filepath"
)

// LocalBackend stores blobs on the local filesystem, sharded by the first two
// hex characters of the hash: <root>/ab/abcdef...<ext>
type LocalBackend struct {
	root string
}

// NewLocalBackend creates a filesystem backend rooted at root
func NewLocalBackend(root string) *LocalBackend {
	return &LocalBackend{root: root}
}

// GetStoragePath derives the blob locator from hash and file extension
func (b *LocalBackend) GetStoragePath(hash string, ext string) string {
	return filepath.Join(b.root, hash[:2], hash+ext)
}

// Store writes the blob atomically: temp file in the target directory, then
// rename. Concurrent writers of identical content race harmlessly because
// they rename byte-identical files onto the same locator.
func (b *LocalBackend) Store(ctx context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StorageError{Op: "store", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return &StorageError{Op: "store", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Op: "store", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "store", Path: path, Err: err}
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "store", Path: path, Err: err}
	}
	return nil
}

// Retrieve returns the blob bytes for a hash, or (nil, nil) when absent
func (b *LocalBackend) Retrieve(ctx context.Context, hash string) ([]byte, error) {
	path, err := b.find(hash)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &StorageError{Op: "retrieve", Path: path, Err: err}
	}
	return data, nil
}

// Exists reports whether a blob with the given hash is stored
func (b *LocalBackend) Exists(ctx context.Context, hash string) (bool, error) {
	path, err := b.find(hash)
	if err != nil {
		return false, err
	}
	return path != "", nil
}

// Locate returns the path the blob was actually stored under, or "" when no
// blob exists for the hash
func (b *LocalBackend) Locate(ctx context.Context, hash string) (string, error) {
	return b.find(hash)
}

// Delete removes the blob for a hash, reporting whether anything was removed
func (b *LocalBackend) Delete(ctx context.Context, hash string) (bool, error) {
	path, err := b.find(hash)
	if err != nil {
		return false, err
	}
	if path == "" {
		return false, nil
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &StorageError{Op: "delete", Path: path, Err: err}
	}
	return true, nil
}

// find locates the stored file for a hash regardless of its extension
func (b *LocalBackend) find(hash string) (string, error) {
	if len(hash) < 2 {
		return "", nil
	}

	matches, err := filepath.Glob(filepath.Join(b.root, hash[:2], hash+"*"))
	if err != nil {
		return "", &StorageError{Op: "find", Path: hash, Err: err}
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}
