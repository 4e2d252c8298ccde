package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
	"blendpredict/internal/core/ports/output"
)

// MockPredictionCatalog is a mock of PredictionCatalog.
type MockPredictionCatalog struct {
	mock.Mock
}

func (m *MockPredictionCatalog) Record(ctx context.Context, ownerID, filename, locationKey string, result []byte) (uuid.UUID, error) {
	args := m.Called(ctx, ownerID, filename, locationKey, result)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockPredictionCatalog) ListByOwner(ctx context.Context, filter ports.RunListFilter) ([]*domain.PredictionSummary, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.PredictionSummary), args.Int(1), args.Error(2)
}

func (m *MockPredictionCatalog) Fetch(ctx context.Context, runID uuid.UUID) (*domain.PredictionRecord, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PredictionRecord), args.Error(1)
}

// MockArtifactStore is a mock of ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockArtifactStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockPredictor is a mock of Predictor.
type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	args := m.Called(ctx, x)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mat.Dense), args.Error(1)
}
