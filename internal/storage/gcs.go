package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsWriteTimeout = 2 * time.Minute

type GCSStore struct {
	client       *storage.Client
	bucket       string
	emulatorHost string
}

// NewGCSStore connects with application default credentials, or without
// authentication when emulatorHost is set.
func NewGCSStore(ctx context.Context, bucket, emulatorHost string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket required")
	}
	emulatorHost = strings.TrimRight(strings.TrimSpace(emulatorHost), "/")
	var opts []option.ClientOption
	if emulatorHost != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", emulatorHost)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, emulatorHost: emulatorHost}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, gcsWriteTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(k).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s to gcs: %w", k, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs writer: %w", err)
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	rc, err := s.client.Bucket(s.bucket).Object(k).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s from gcs: %w", k, err)
	}
	return rc, nil
}

func (s *GCSStore) PublicURL(key string) string {
	return publicGCSURL(s.emulatorHost, s.bucket, key)
}

func publicGCSURL(emulatorHost, bucket, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if emulatorHost != "" {
		return fmt.Sprintf("%s/%s/%s", emulatorHost, bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

func (s *GCSStore) Close() error { return s.client.Close() }
