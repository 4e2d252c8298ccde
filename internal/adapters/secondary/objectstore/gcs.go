package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"blendpredict/internal/config"
	"blendpredict/internal/core/domain"
	ports "blendpredict/internal/core/ports/output"
)

type gcsStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore builds a Cloud Storage store. Without a credentials file the
// application default credentials are used.
func NewGCSStore(ctx context.Context, cfg *config.GCSConfig) (ports.ArtifactStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS storage client: %w", err)
	}
	return &gcsStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *gcsStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	obj := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: write gs://%s/%s: %v", domain.ErrStoreUnavailable, s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && gErr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("%w: gs://%s/%s", domain.ErrArtifactExists, s.bucket, key)
		}
		return fmt.Errorf("%w: close writer for gs://%s/%s: %v", domain.ErrStoreUnavailable, s.bucket, key, err)
	}
	return nil
}

func (s *gcsStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", domain.ErrArtifactNotFound, s.bucket, key)
		}
		return nil, fmt.Errorf("%w: open gs://%s/%s: %v", domain.ErrStoreUnavailable, s.bucket, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read gs://%s/%s: %v", domain.ErrStoreUnavailable, s.bucket, key, err)
	}
	return data, nil
}

func (s *gcsStore) Close() error {
	return s.client.Close()
}
