package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
)

type ScalerSpec struct {
	Kind  string    `json:"kind"`
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// StandardScaler applies (x - mean) / scale column-wise.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

func newScaler(spec ScalerSpec, width int) (*StandardScaler, error) {
	if spec.Kind != "" && spec.Kind != "standard" {
		return nil, fmt.Errorf("%w: unknown scaler kind %q", ErrInvalidBundle, spec.Kind)
	}
	if len(spec.Mean) != width || len(spec.Scale) != width {
		return nil, fmt.Errorf("%w: scaler has %d means and %d scales for %d features",
			ErrInvalidBundle, len(spec.Mean), len(spec.Scale), width)
	}
	return NewStandardScaler(spec.Mean, spec.Scale), nil
}

// NewStandardScaler copies its parameters. A zero scale is treated as 1, as
// scikit-learn does for constant features.
func NewStandardScaler(mean, scale []float64) *StandardScaler {
	s := &StandardScaler{
		mean:  append([]float64(nil), mean...),
		scale: make([]float64, len(scale)),
	}
	for i, v := range scale {
		if v == 0 {
			v = 1
		}
		s.scale[i] = v
	}
	return s
}

func (s *StandardScaler) Transform(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != len(s.mean) {
		return nil, fmt.Errorf("%w: scaler fit on %d features, got %d", domain.ErrDimensionMismatch, len(s.mean), cols)
	}
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.mean[j]) / s.scale[j]
	}, x)
	return out, nil
}
