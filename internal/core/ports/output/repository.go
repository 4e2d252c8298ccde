package ports

import (
	"context"

	"github.com/google/uuid"

	"blendpredict/internal/core/domain"
)

type RunListFilter struct {
	OwnerID string
	Limit   int
	Offset  int
}

// PredictionCatalog records one row per completed run. Implementations
// acquire a connection per call and release it on every exit path.
type PredictionCatalog interface {
	Record(ctx context.Context, ownerID, filename, locationKey string, result []byte) (uuid.UUID, error)
	ListByOwner(ctx context.Context, filter RunListFilter) ([]*domain.PredictionSummary, int, error)
	Fetch(ctx context.Context, runID uuid.UUID) (*domain.PredictionRecord, error)
}
