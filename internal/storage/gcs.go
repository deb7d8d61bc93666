package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore writes to a Google Cloud Storage (Firebase) bucket
type GCSStore struct {
	client *storage.Client
	bucket string
	// If empty, uses https://storage.googleapis.com/{bucket}
	publicBase string
}

func NewGCSStore(ctx context.Context, credentialsFile, bucket, publicBase string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient failed: %w", err)
	}
	if publicBase == "" {
		publicBase = "https://storage.googleapis.com/" + strings.TrimSpace(bucket)
	}
	return &GCSStore{client: client, bucket: strings.TrimSpace(bucket), publicBase: publicBase}, nil
}

func (s *GCSStore) Upload(ctx context.Context, path, contentType string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close %s: %w", path, err)
	}
	return nil
}

func (s *GCSStore) Download(ctx context.Context, path string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gcs read %s: %w", path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Remove stops on the first error; missing objects are ignored
func (s *GCSStore) Remove(ctx context.Context, paths ...string) error {
	bh := s.client.Bucket(s.bucket)
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := bh.Object(p).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("gcs delete %s: %w", p, err)
		}
	}
	return nil
}

func (s *GCSStore) PublicURL(path string) string {
	return joinURL(s.publicBase, path)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
