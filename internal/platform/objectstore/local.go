package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalStore implements Store on the local filesystem. Objects are served
// by whatever is mounted at publicURL.
type LocalStore struct {
	baseDir   string
	publicURL string
	maxBytes  int64
	logger    *slog.Logger
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates baseDir if needed.
func NewLocalStore(baseDir, publicURL string, log *slog.Logger) (*LocalStore, error) {
	if baseDir == "" {
		return nil, errors.New("local storage directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	if publicURL == "" {
		publicURL = "file://" + filepath.ToSlash(baseDir)
	}
	return &LocalStore{
		baseDir:   baseDir,
		publicURL: publicURL,
		maxBytes:  DefaultMaxObjectBytes,
		logger:    log.With("component", "local_store"),
	}, nil
}

func (s *LocalStore) path(key string) (string, string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return clean, filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}

// Put implements Store. The file is written to a temporary name and renamed.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, full, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("rename object: %w", err)
	}

	s.logger.Debug("object stored", "key", clean, "size", len(data), "content_type", contentType)
	return s.URL(clean), nil
}

// Get implements Store.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, full, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, clean)
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrObjectTooLarge, s.maxBytes)
	}
	return data, nil
}

// Delete implements Store.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	_, full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// URL implements Store.
func (s *LocalStore) URL(key string) string {
	return joinURL(s.publicURL, key)
}
