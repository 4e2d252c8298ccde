package ensemble

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
)

// TreesSpec is a boosted regression tree ensemble with one tree list per
// output. Learning rates are expected to be folded into leaf values.
type TreesSpec struct {
	Features  int         `json:"features"`
	BaseScore []float64   `json:"base_score"`
	Outputs   [][]TreeSpec `json:"outputs"`
}

type TreeSpec struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode is either a split (Leaf false) or a leaf. Samples with
// x[Feature] <= Threshold go Left. Missing values are not expected because
// inputs are validated as finite numbers.
type TreeNode struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

type TreeEnsemble struct {
	features  int
	baseScore []float64
	outputs   [][]TreeSpec
}

func NewTreeEnsemble(spec TreesSpec) (*TreeEnsemble, error) {
	if spec.Features <= 0 {
		return nil, fmt.Errorf("%w: tree ensemble must declare its feature count", ErrInvalidBundle)
	}
	if len(spec.Outputs) == 0 {
		return nil, fmt.Errorf("%w: tree ensemble has no outputs", ErrInvalidBundle)
	}
	base := make([]float64, len(spec.Outputs))
	switch len(spec.BaseScore) {
	case 0:
	case len(spec.Outputs):
		copy(base, spec.BaseScore)
	default:
		return nil, fmt.Errorf("%w: %d base scores for %d outputs", ErrInvalidBundle, len(spec.BaseScore), len(spec.Outputs))
	}
	for k, trees := range spec.Outputs {
		for t, tree := range trees {
			if err := validateTree(tree, spec.Features); err != nil {
				return nil, fmt.Errorf("output %d tree %d: %w", k, t, err)
			}
		}
	}
	return &TreeEnsemble{features: spec.Features, baseScore: base, outputs: spec.Outputs}, nil
}

// validateTree rejects out-of-range references and cycles so that walk
// always terminates.
func validateTree(tree TreeSpec, features int) error {
	n := len(tree.Nodes)
	if n == 0 {
		return fmt.Errorf("%w: empty tree", ErrInvalidBundle)
	}
	for i, node := range tree.Nodes {
		if node.Leaf {
			continue
		}
		if node.Feature < 0 || node.Feature >= features {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrInvalidBundle, i, node.Feature, features)
		}
		if node.Left <= i || node.Left >= n || node.Right <= i || node.Right >= n {
			return fmt.Errorf("%w: node %d has children (%d,%d) outside (%d,%d)", ErrInvalidBundle, i, node.Left, node.Right, i, n)
		}
		if math.IsNaN(node.Threshold) {
			return fmt.Errorf("%w: node %d has a NaN threshold", ErrInvalidBundle, i)
		}
	}
	return nil
}

func (t *TreeEnsemble) Inputs() int  { return t.features }
func (t *TreeEnsemble) Outputs() int { return len(t.outputs) }

func (t *TreeEnsemble) Predict(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != t.features {
		return nil, fmt.Errorf("%w: tree ensemble takes %d inputs, got %d", domain.ErrDimensionMismatch, t.features, cols)
	}
	y := mat.NewDense(rows, len(t.outputs), nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mat.Row(row, i, x)
		for k, trees := range t.outputs {
			sum := t.baseScore[k]
			for _, tree := range trees {
				sum += walk(tree.Nodes, row)
			}
			y.Set(i, k, sum)
		}
	}
	return y, nil
}

func walk(nodes []TreeNode, row []float64) float64 {
	i := 0
	for !nodes[i].Leaf {
		if row[nodes[i].Feature] <= nodes[i].Threshold {
			i = nodes[i].Left
		} else {
			i = nodes[i].Right
		}
	}
	return nodes[i].Value
}
