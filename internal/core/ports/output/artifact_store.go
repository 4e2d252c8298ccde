package ports

import "context"

// ArtifactStore holds serialized prediction results by location key.
// Adapters never retry; transport and auth failures wrap
// domain.ErrStoreUnavailable and missing keys wrap domain.ErrArtifactNotFound.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}
