// Package objectstore implements ports.ArtifactStore on S3, Cloud Storage,
// Redis and a local filesystem.
package objectstore

import (
	"context"
	"fmt"

	"blendpredict/internal/config"
	ports "blendpredict/internal/core/ports/output"
)

// New builds the store selected by cfg.Backend. Stores that hold network
// clients also implement io.Closer.
func New(ctx context.Context, cfg *config.StoreConfig) (ports.ArtifactStore, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Store(ctx, &cfg.S3)
	case "gcs":
		return NewGCSStore(ctx, &cfg.GCS)
	case "redis":
		store, err := NewRedisStore(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "fs":
		store, err := NewFSStore(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
