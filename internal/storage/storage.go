package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shotflow/api/internal/config"
)

// Client defines the interface for artifact storage operations
type Client interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	GetPublicURL(key string) string
}

// New selects the storage backend from configuration.
func New(cfg *config.StorageConfig, mediaRoot string) (Client, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalClient(mediaRoot, cfg.PublicURL), nil
	case "s3":
		return NewS3Client(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
