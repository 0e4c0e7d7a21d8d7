package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStore writes objects below a directory that the HTTP server exposes
// at URLPrefix.
type LocalStore struct {
	root      string
	urlPrefix string
	logger    *zap.Logger
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, urlPrefix string, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory '%s': %w", root, err)
	}
	return &LocalStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/"), logger: logger}, nil
}

func (s *LocalStore) Name() string { return "local" }

// Root is the directory objects are written to.
func (s *LocalStore) Root() string { return s.root }

// Save streams the body into a temp file next to the target and renames it
// into place, so a failed upload never leaves a partial file behind.
func (s *LocalStore) Save(ctx context.Context, obj Object) (string, error) {
	key, err := cleanKey(obj.Key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating directory for '%s': %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file for '%s': %w", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: obj.Body}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing '%s': %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing '%s': %w", key, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("setting permissions on '%s': %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("moving '%s' into place: %w", key, err)
	}

	s.logger.Debug("Stored upload locally", zap.String("key", key), zap.String("path", target))
	return s.urlPrefix + "/" + key, nil
}

// contextReader stops a copy once the request is canceled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
