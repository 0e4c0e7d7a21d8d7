// Package storage persists uploaded media and returns the public URL it is
// served from.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrInvalidKey is returned for object keys that are empty or escape the
// store root.
var ErrInvalidKey = errors.New("invalid object key")

// Object is a file to store under Key, e.g. "audio/audio_1700000000000_1a2b3c4d.mp3".
type Object struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
}

// FileStore writes objects and reports where they are publicly reachable.
type FileStore interface {
	Save(ctx context.Context, obj Object) (string, error)
	Name() string
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != key {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
