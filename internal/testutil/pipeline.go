package testutil

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
	"blendpredict/internal/core/ports/output"
)

// FuncPredictor adapts a plain function to Predictor.
type FuncPredictor func(x *mat.Dense) (*mat.Dense, error)

func (f FuncPredictor) Predict(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
	return f(x)
}

// IdentityScaler returns a copy of its input.
type IdentityScaler struct{}

func (IdentityScaler) Transform(x *mat.Dense) (*mat.Dense, error) {
	return mat.DenseCopyOf(x), nil
}

// ConstantPredictor returns rows x outputs filled with v.
func ConstantPredictor(outputs int, v float64) FuncPredictor {
	return func(x *mat.Dense) (*mat.Dense, error) {
		rows, _ := x.Dims()
		out := mat.NewDense(rows, outputs, nil)
		out.Apply(func(_, _ int, _ float64) float64 { return v }, out)
		return out, nil
	}
}

// RowSumPredictor returns, for every output j, (j+1) * sum(row).
func RowSumPredictor(outputs int) FuncPredictor {
	return func(x *mat.Dense) (*mat.Dense, error) {
		rows, _ := x.Dims()
		out := mat.NewDense(rows, outputs, nil)
		for i := 0; i < rows; i++ {
			s := mat.Sum(x.RowView(i))
			for j := 0; j < outputs; j++ {
				out.Set(i, j, float64(j+1)*s)
			}
		}
		return out, nil
	}
}

// StubArtifacts builds a deterministic pipeline over the named feature
// columns with k targets. Base learner b returns (b+1) * (j+1) * sum(row),
// the meta learner sums the three base blocks and the residual adds 0.5.
func StubArtifacts(features []string, k int) *ports.EnsembleArtifacts {
	a := &ports.EnsembleArtifacts{
		Contract: domain.FeatureContract{Version: "test", Columns: features, Count: len(features)},
		Targets:  k,
		Scaler:   IdentityScaler{},
	}
	for b := 0; b < 3; b++ {
		scale := float64(b + 1)
		base := RowSumPredictor(k)
		a.Base[b] = ports.BaseLearner{
			Name: fmt.Sprintf("base%d", b+1),
			Model: FuncPredictor(func(x *mat.Dense) (*mat.Dense, error) {
				out, err := base(x)
				if err != nil {
					return nil, err
				}
				out.Scale(scale, out)
				return out, nil
			}),
		}
	}
	a.Meta = FuncPredictor(func(x *mat.Dense) (*mat.Dense, error) {
		rows, _ := x.Dims()
		out := mat.NewDense(rows, k, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < k; j++ {
				out.Set(i, j, x.At(i, j)+x.At(i, k+j)+x.At(i, 2*k+j))
			}
		}
		return out, nil
	})
	a.Residual = ConstantPredictor(k, 0.5)
	return a
}
