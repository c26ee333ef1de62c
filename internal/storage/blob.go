package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

// BlobStore holds uploaded originals. Keys are slash separated and relative.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	PublicURL(key string) string
}

// cleanKey rejects empty, absolute and parent-escaping keys.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("empty key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", errors.New("invalid key: " + key)
		}
	}
	return key, nil
}
