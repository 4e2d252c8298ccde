package services

import (
	"context"

	"blendpredict/internal/core/domain"
)

// Score runs parse, inference and labelling on one file without persisting
// anything.
func Score(ctx context.Context, engine *InferenceEngine, idColumn string, data []byte) (*domain.PredictionResult, error) {
	contract, err := engine.Contract()
	if err != nil {
		return nil, err
	}
	table, err := ParseTable(data)
	if err != nil {
		return nil, err
	}
	features, ids := ExtractIdentifier(table, idColumn)
	x, err := ValidateSchema(features, contract)
	if err != nil {
		return nil, err
	}
	y, err := engine.Infer(ctx, x)
	if err != nil {
		return nil, err
	}
	return ToResultTable(y, idColumn, ids)
}
