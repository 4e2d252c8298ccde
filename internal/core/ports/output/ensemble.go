package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
)

// Predictor maps a (rows, in) matrix to a (rows, out) matrix.
// Implementations must be safe for concurrent use.
type Predictor interface {
	Predict(ctx context.Context, x *mat.Dense) (*mat.Dense, error)
}

// Scaler applies a fitted feature transform.
type Scaler interface {
	Transform(x *mat.Dense) (*mat.Dense, error)
}

// BaseLearner is one first-level model of the stack.
type BaseLearner struct {
	Name  string
	Model Predictor
}

// EnsembleArtifacts is the loaded stacked pipeline. It is built once at
// startup and only read afterwards. Base order is the meta-feature order.
type EnsembleArtifacts struct {
	Contract domain.FeatureContract
	Targets  int
	Scaler   Scaler
	Base     [3]BaseLearner
	Meta     Predictor
	Residual Predictor
}
