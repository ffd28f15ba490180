// Package storage provides blob storage for pipeline artifacts.
// Pipelines treat it as content-addressed-by-path storage; there is no
// transactional guarantee across multiple saves.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Provider is the storage collaborator used by the pipelines.
type Provider interface {
	// Save writes content at path, creating parent prefixes as needed.
	Save(ctx context.Context, path string, content []byte) error
	// Get reads the full content at path.
	Get(ctx context.Context, path string) ([]byte, error)
	// GetStream opens a reader for the content at path.
	GetStream(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes the content at path.
	Delete(ctx context.Context, path string) error
	// List returns all paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Exists reports whether content exists at path.
	Exists(ctx context.Context, path string) (bool, error)
	// PublicURL returns a URL at which the content can be served.
	PublicURL(path string) string
}

// Config selects and configures a storage provider.
type Config struct {
	Provider  string // "local" or "s3"
	LocalPath string
	S3        S3Config
}

// New creates a storage provider from configuration.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "local":
		return NewLocal(cfg.LocalPath)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage provider: %q (supported: local, s3)", cfg.Provider)
	}
}
