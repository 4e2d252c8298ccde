// Package ensemble loads a stacked regression pipeline from a JSON bundle
// exported by the training job.
package ensemble

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"blendpredict/internal/core/domain"
	ports "blendpredict/internal/core/ports/output"
)

// Bundle is the on-disk description of the pipeline.
type Bundle struct {
	Version  string                 `json:"version"`
	Features domain.FeatureContract `json:"features"`
	Targets  int                    `json:"targets"`
	Scaler   ScalerSpec             `json:"scaler"`
	Base     []NamedModelSpec       `json:"base"`
	Meta     ModelSpec              `json:"meta"`
	Residual ModelSpec              `json:"residual"`
}

type NamedModelSpec struct {
	Name  string    `json:"name"`
	Model ModelSpec `json:"model"`
}

// ModelSpec selects one model kind; only the matching field is read.
type ModelSpec struct {
	Kind   string      `json:"kind"`
	Linear *LinearSpec `json:"linear,omitempty"`
	Trees  *TreesSpec  `json:"trees,omitempty"`
	Remote *RemoteSpec `json:"remote,omitempty"`
}

const (
	KindLinear = "linear"
	KindTrees  = "trees"
	KindRemote = "remote"
)

var ErrInvalidBundle = errors.New("invalid model bundle")

// LoadBundle reads and builds the bundle at path.
func LoadBundle(path string) (*ports.EnsembleArtifacts, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle %s: %w", path, err)
	}
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidBundle, path, err)
	}
	return b.Build()
}

// Build validates every component shape against the contract and returns
// the immutable artifacts.
func (b *Bundle) Build() (*ports.EnsembleArtifacts, error) {
	width := b.Features.Width()
	if width <= 0 {
		return nil, fmt.Errorf("%w: feature contract is empty", ErrInvalidBundle)
	}
	if b.Targets <= 0 {
		return nil, fmt.Errorf("%w: targets must be > 0", ErrInvalidBundle)
	}
	if len(b.Base) != 3 {
		return nil, fmt.Errorf("%w: expected 3 base learners, got %d", ErrInvalidBundle, len(b.Base))
	}

	scaler, err := newScaler(b.Scaler, width)
	if err != nil {
		return nil, err
	}

	a := &ports.EnsembleArtifacts{
		Contract: b.Features,
		Targets:  b.Targets,
		Scaler:   scaler,
	}

	for i, spec := range b.Base {
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("base%d", i+1)
		}
		m, err := newModel(spec.Model, width, b.Targets)
		if err != nil {
			return nil, fmt.Errorf("base learner %s: %w", name, err)
		}
		a.Base[i] = ports.BaseLearner{Name: name, Model: m}
	}

	if a.Meta, err = newModel(b.Meta, 3*b.Targets, b.Targets); err != nil {
		return nil, fmt.Errorf("meta learner: %w", err)
	}
	if a.Residual, err = newModel(b.Residual, 3*b.Targets, b.Targets); err != nil {
		return nil, fmt.Errorf("residual model: %w", err)
	}
	return a, nil
}

// Model is a Predictor with known input and output widths.
type Model interface {
	ports.Predictor
	Inputs() int
	Outputs() int
}

func newModel(spec ModelSpec, inputs, outputs int) (Model, error) {
	var (
		m   Model
		err error
	)
	switch spec.Kind {
	case KindLinear:
		if spec.Linear == nil {
			return nil, fmt.Errorf("%w: linear model without parameters", ErrInvalidBundle)
		}
		m, err = NewLinear(spec.Linear.Coef, spec.Linear.Intercept)
	case KindTrees:
		if spec.Trees == nil {
			return nil, fmt.Errorf("%w: tree model without parameters", ErrInvalidBundle)
		}
		m, err = NewTreeEnsemble(*spec.Trees)
	case KindRemote:
		if spec.Remote == nil {
			return nil, fmt.Errorf("%w: remote model without endpoint", ErrInvalidBundle)
		}
		m, err = NewRemote(*spec.Remote)
	default:
		return nil, fmt.Errorf("%w: unknown model kind %q", ErrInvalidBundle, spec.Kind)
	}
	if err != nil {
		return nil, err
	}
	if m.Inputs() != inputs || m.Outputs() != outputs {
		return nil, fmt.Errorf("%w: model is (%d -> %d), pipeline needs (%d -> %d)",
			ErrInvalidBundle, m.Inputs(), m.Outputs(), inputs, outputs)
	}
	return m, nil
}
