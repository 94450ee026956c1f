// Package storage provides object storage for book cover images.
//
// Two implementations back the Storage interface:
//   - LocalStorage: filesystem storage for development
//   - S3Storage: any S3-compatible endpoint (AWS, R2, minio) for production
//
// Covers live under "covers/<book-id>.<ext>" keys; the cover resolver
// builds public URLs from the same base URL this package serves from.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Storage defines the interface for cover object operations.
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at the specified key with the given options.
	// Returns ErrKeyExists if the key exists and overwrite is disabled.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at the specified key. The caller must close
	// the reader. Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for accessing the object: permanent when public,
	// presigned for the given duration otherwise.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType specifies the MIME type of the object. Auto-detected
	// from the key extension when empty.
	ContentType string

	// MaxSize caps the object size in bytes; ErrTooLarge past it.
	// Zero means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool

	// Public marks the object world-readable (S3 ACL; informational for
	// local storage).
	Public bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	BasePath string

	// BaseURL is the public URL prefix for accessing files.
	BaseURL string
}

// S3Config holds configuration for S3-compatible storage.
type S3Config struct {
	Endpoint        string // Full endpoint URL, e.g. https://<account>.r2.cloudflarestorage.com
	Region          string // "auto" works for R2/minio
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string // Optional custom domain for public objects
}

// CoverKey builds the canonical storage key for one book's cover,
// preserving the original file extension.
func CoverKey(bookID uuid.UUID, originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("covers/%s%s", bookID, ext)
}

// ThumbnailKey builds the storage key for one book's listing thumbnail.
// Thumbnails are always re-encoded as JPEG.
func ThumbnailKey(bookID uuid.UUID) string {
	return fmt.Sprintf("covers/thumbs/%s.jpg", bookID)
}
