package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
	"blendpredict/internal/core/ports/output"
)

// InferenceEngine runs the stacked pipeline:
// scale -> 3 base learners -> concat -> meta + residual.
type InferenceEngine struct {
	artifacts *ports.EnsembleArtifacts
}

// NewInferenceEngine wraps the loaded artifacts. A nil bundle is accepted so
// the process can start without a model; Infer then reports
// ErrInferenceUnavailable.
func NewInferenceEngine(artifacts *ports.EnsembleArtifacts) *InferenceEngine {
	return &InferenceEngine{artifacts: artifacts}
}

// Ready reports whether every pipeline component is loaded.
func (e *InferenceEngine) Ready() error {
	a := e.artifacts
	if a == nil {
		return fmt.Errorf("%w: no model bundle", domain.ErrInferenceUnavailable)
	}
	if a.Scaler == nil {
		return fmt.Errorf("%w: scaler", domain.ErrInferenceUnavailable)
	}
	for i, b := range a.Base {
		if b.Model == nil {
			return fmt.Errorf("%w: base learner %d", domain.ErrInferenceUnavailable, i+1)
		}
	}
	if a.Meta == nil {
		return fmt.Errorf("%w: meta learner", domain.ErrInferenceUnavailable)
	}
	if a.Residual == nil {
		return fmt.Errorf("%w: residual model", domain.ErrInferenceUnavailable)
	}
	if a.Targets <= 0 {
		return fmt.Errorf("%w: target count", domain.ErrInferenceUnavailable)
	}
	return nil
}

// Contract returns the feature contract of the loaded bundle.
func (e *InferenceEngine) Contract() (domain.FeatureContract, error) {
	if err := e.Ready(); err != nil {
		return domain.FeatureContract{}, err
	}
	return e.artifacts.Contract, nil
}

// Targets returns K, the number of predicted properties.
func (e *InferenceEngine) Targets() int {
	if e.artifacts == nil {
		return 0
	}
	return e.artifacts.Targets
}

// Infer returns a (rows, K) matrix for the feature matrix x.
func (e *InferenceEngine) Infer(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	if err := e.Ready(); err != nil {
		return nil, err
	}
	a := e.artifacts
	k := a.Targets
	rows, cols := x.Dims()
	if w := a.Contract.Width(); w > 0 && cols != w {
		return nil, fmt.Errorf("%w: input has %d columns, contract %d", domain.ErrDimensionMismatch, cols, w)
	}

	scaled, err := a.Scaler.Transform(x)
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	if err := checkShape("scaler", scaled, rows, cols); err != nil {
		return nil, err
	}

	// Learners share no state, so they run concurrently; results land in a
	// fixed slot so concatenation order never depends on scheduling.
	var base [3]*mat.Dense
	g, gCtx := errgroup.WithContext(ctx)
	for i, learner := range a.Base {
		g.Go(func() error {
			out, err := learner.Model.Predict(gCtx, scaled)
			if err != nil {
				return fmt.Errorf("base learner %s: %w", learner.Name, err)
			}
			if err := checkShape("base learner "+learner.Name, out, rows, k); err != nil {
				return err
			}
			base[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	meta := mat.NewDense(rows, 3*k, nil)
	for i, b := range base {
		meta.Slice(0, rows, i*k, (i+1)*k).(*mat.Dense).Copy(b)
	}

	metaPred, err := a.Meta.Predict(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("meta learner: %w", err)
	}
	if err := checkShape("meta learner", metaPred, rows, k); err != nil {
		return nil, err
	}

	correction, err := a.Residual.Predict(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("residual model: %w", err)
	}
	if err := checkShape("residual model", correction, rows, k); err != nil {
		return nil, err
	}

	var out mat.Dense
	out.Add(metaPred, correction)
	return &out, nil
}

func checkShape(stage string, m *mat.Dense, rows, cols int) error {
	if m == nil {
		return fmt.Errorf("%w: %s returned no output", domain.ErrDimensionMismatch, stage)
	}
	r, c := m.Dims()
	if r != rows || c != cols {
		return fmt.Errorf("%w: %s returned (%d,%d), want (%d,%d)", domain.ErrDimensionMismatch, stage, r, c, rows, cols)
	}
	return nil
}
