package ensemble

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
)

// LinearSpec follows the scikit-learn layout: coef is (outputs, inputs).
type LinearSpec struct {
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// Linear computes Y = X·Wᵀ + b. Ridge, meta and residual regressors export
// to this form.
type Linear struct {
	w *mat.Dense
	b []float64
}

func NewLinear(coef [][]float64, intercept []float64) (*Linear, error) {
	outputs := len(coef)
	if outputs == 0 || len(coef[0]) == 0 {
		return nil, fmt.Errorf("%w: empty coefficient matrix", ErrInvalidBundle)
	}
	inputs := len(coef[0])
	w := mat.NewDense(outputs, inputs, nil)
	for i, row := range coef {
		if len(row) != inputs {
			return nil, fmt.Errorf("%w: coefficient row %d has %d values, want %d", ErrInvalidBundle, i, len(row), inputs)
		}
		w.SetRow(i, row)
	}

	b := make([]float64, outputs)
	switch len(intercept) {
	case 0:
	case outputs:
		copy(b, intercept)
	default:
		return nil, fmt.Errorf("%w: %d intercepts for %d outputs", ErrInvalidBundle, len(intercept), outputs)
	}
	return &Linear{w: w, b: b}, nil
}

func (l *Linear) Inputs() int {
	_, c := l.w.Dims()
	return c
}

func (l *Linear) Outputs() int {
	r, _ := l.w.Dims()
	return r
}

func (l *Linear) Predict(_ context.Context, x *mat.Dense) (*mat.Dense, error) {
	if _, c := x.Dims(); c != l.Inputs() {
		return nil, fmt.Errorf("%w: linear model takes %d inputs, got %d", domain.ErrDimensionMismatch, l.Inputs(), c)
	}
	var y mat.Dense
	y.Mul(x, l.w.T())
	y.Apply(func(_, j int, v float64) float64 {
		return v + l.b[j]
	}, &y)
	return &y, nil
}
