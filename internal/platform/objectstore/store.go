// Package objectstore stores uploaded source documents and generated
// artifacts. Two backends exist: Amazon S3 (or an S3-compatible endpoint)
// and the local filesystem for development.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrObjectNotFound is returned by Get when the key does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for empty keys or keys escaping the store root.
	ErrInvalidKey = errors.New("invalid object key")

	// ErrObjectTooLarge is returned by Get when an object exceeds the read limit.
	ErrObjectTooLarge = errors.New("object too large")
)

// DefaultMaxObjectBytes bounds how much of an object Get will read into memory.
const DefaultMaxObjectBytes int64 = 64 << 20

// Store is the object storage contract shared by both backends.
type Store interface {
	// Put writes data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get reads the whole object.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key without touching the backend.
	URL(key string) string
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFileName reduces name to a safe base name for use inside a key.
func SanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	base = unsafeFileChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	if len(base) > 128 {
		ext := filepath.Ext(base)
		if len(ext) > 16 {
			ext = ""
		}
		base = base[:128-len(ext)] + ext
	}
	return base
}

// UploadKey builds the key for a user's source document:
// uploads/{user_id}/{random}_{file name}.
func UploadKey(userID uuid.UUID, fileName string) string {
	return fmt.Sprintf("uploads/%s/%s_%s", userID, uuid.NewString(), SanitizeFileName(fileName))
}

// cleanKey validates key and returns it in slash-separated canonical form.
// Keys may not be absolute or contain parent segments.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	clean := path.Clean(key)
	if clean == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
