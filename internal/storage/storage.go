// Package storage writes PO, PI and invoice documents to object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/nishant-jng/shopify-backend-sub000/pkg/config"
)

var ErrNotFound = errors.New("object not found")

// ObjectStore is the subset of an object storage service the workflows need
type ObjectStore interface {
	Upload(ctx context.Context, path, contentType string, data []byte) error
	Download(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, paths ...string) error
	PublicURL(path string) string
}

// Object is a document ready to be uploaded
type Object struct {
	Path        string
	ContentType string
	Data        []byte
}

// New builds the store selected by cfg.Storage.Driver
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (ObjectStore, error) {
	log.Info("Initializing object storage",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("bucket", cfg.Storage.Bucket))

	switch cfg.Storage.Driver {
	case config.StorageSupabase:
		return NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Storage.Bucket)
	case config.StorageGCS:
		return NewGCSStore(ctx, cfg.GCS.CredentialsFile, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
	case config.StorageS3:
		return NewS3Store(ctx, cfg.S3, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
	case config.StorageMemory:
		return NewMemoryStore(cfg.Storage.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Move copies an object to a new path. The caller removes the original once
// nothing references it any more.
func Move(ctx context.Context, store ObjectStore, from, to string) error {
	data, err := store.Download(ctx, from)
	if err != nil {
		return fmt.Errorf("download %s: %w", from, err)
	}
	if err := store.Upload(ctx, to, ContentType(to, data), data); err != nil {
		return fmt.Errorf("upload %s: %w", to, err)
	}
	return nil
}

// ContentType guesses from the extension, falling back to a PDF sniff
func ContentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return "application/pdf"
	}
	return "application/octet-stream"
}

func joinURL(base, objectPath string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(objectPath, "/")
}
