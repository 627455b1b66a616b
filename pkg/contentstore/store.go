// Package contentstore provides hash-addressed document storage with
// automatic deduplication
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/gabriel-vasile/mimetype"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Store wraps a pluggable byte-storage backend with content hashing and
// deduplication. The locator is content-derived, so concurrent stores of
// identical bytes are idempotent without locking.
type Store struct {
	backend Backend
	emitter *events.Emitter
	logger  ectologger.Logger
}

// NewStore creates a new content store. The emitter may be nil.
func NewStore(backend Backend, emitter *events.Emitter, logger ectologger.Logger) *Store {
	return &Store{
		backend: backend,
		emitter: emitter,
		logger:  logger,
	}
}

// Hash returns the hex SHA-256 digest of the raw bytes
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Store persists the bytes under their content hash. If a blob with the same
// hash already exists, its metadata is returned with Deduplicated=true and
// nothing is rewritten.
func (s *Store) Store(ctx context.Context, data []byte, filename string, mimeType string) (*models.ContentBlob, error) {
	ctx, span := tracing.StartSpan(ctx, "contentstore.Store.Store")
	defer span.End()

	if len(data) == 0 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "document bytes are required")
	}

	hash := Hash(data)
	ext := strings.ToLower(filepath.Ext(filename))
	path := s.backend.GetStoragePath(hash, ext)

	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}

	blob := &models.ContentBlob{
		Hash:        hash,
		Size:        int64(len(data)),
		MimeType:    mimeType,
		StoragePath: path,
		Filename:    filename,
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"hash":     hash,
		"filename": filename,
		"size":     blob.Size,
	})

	existing, err := s.backend.Locate(ctx, hash)
	if err != nil {
		log.WithError(err).Error("Failed to check blob existence")
		return nil, err
	}

	if existing != "" {
		// Report the locator the bytes actually live at, which may carry a
		// different extension than this upload's filename
		blob.StoragePath = existing
		blob.Deduplicated = true
		log.Debug("Blob already stored, deduplicated")
		return blob, nil
	}

	if err := s.backend.Store(ctx, path, data); err != nil {
		log.WithError(err).Error("Failed to store blob")
		return nil, err
	}

	log.Debug("Stored blob")

	if s.emitter != nil {
		s.emitter.EmitDocumentStored(ctx, blob)
	}
	return blob, nil
}

// Retrieve returns the stored bytes for a content hash, or (nil, nil) when
// no blob exists
func (s *Store) Retrieve(ctx context.Context, hash string) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "contentstore.Store.Retrieve")
	defer span.End()

	return s.backend.Retrieve(ctx, hash)
}

// Exists reports whether a blob with the given content hash is stored
func (s *Store) Exists(ctx context.Context, hash string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "contentstore.Store.Exists")
	defer span.End()

	return s.backend.Exists(ctx, hash)
}

// Delete removes the blob for a content hash. Blobs are immutable and only
// removed by explicit request.
func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "contentstore.Store.Delete")
	defer span.End()

	deleted, err := s.backend.Delete(ctx, hash)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"hash": hash}).Error("Failed to delete blob")
		return false, err
	}
	return deleted, nil
}
