package ensemble

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/services"
)

func TestLoadBundle(t *testing.T) {
	artifacts, err := LoadBundle(filepath.Join("testdata", "bundle.json"))
	require.NoError(t, err)

	assert.Equal(t, 2, artifacts.Targets)
	assert.Equal(t, []string{"f1", "f2", "f3"}, artifacts.Contract.Columns)
	assert.Equal(t, "lgbm", artifacts.Base[0].Name)
	assert.Equal(t, "catboost", artifacts.Base[1].Name)
	assert.Equal(t, "ridge", artifacts.Base[2].Name)

	engine := services.NewInferenceEngine(artifacts)
	require.NoError(t, engine.Ready())

	y, err := engine.Infer(context.Background(), mat.NewDense(2, 3, []float64{
		1, 2, 3,
		0, 4, 5,
	}))
	require.NoError(t, err)

	// row 0: trees 2, catboost 0.5, ridge (1, 2) -> meta (3.5, 4.5) + residual (0.1, -0.1)
	assert.InDeltaSlice(t, []float64{3.6, 4.4}, y.RawRowView(0), 1e-9)
	// row 1: trees 1, catboost 0.5, ridge (0, 4) -> meta (1.5, 5.5) + residual
	assert.InDeltaSlice(t, []float64{1.6, 5.4}, y.RawRowView(1), 1e-9)
}

func TestLoadBundle_Missing(t *testing.T) {
	_, err := LoadBundle(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadBundle_NotJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadBundle(path)
	assert.ErrorIs(t, err, ErrInvalidBundle)
}

func loadTestBundle(t *testing.T) *Bundle {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "bundle.json"))
	require.NoError(t, err)
	var b Bundle
	require.NoError(t, json.Unmarshal(raw, &b))
	return &b
}

func TestBundle_Build_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Bundle)
	}{
		{"no features", func(b *Bundle) { b.Features.Columns = nil }},
		{"no targets", func(b *Bundle) { b.Targets = 0 }},
		{"two base learners", func(b *Bundle) { b.Base = b.Base[:2] }},
		{"scaler width", func(b *Bundle) { b.Scaler.Mean = []float64{0} }},
		{"scaler kind", func(b *Bundle) { b.Scaler.Kind = "minmax" }},
		{"unknown kind", func(b *Bundle) { b.Meta.Kind = "xgboost" }},
		{"linear without params", func(b *Bundle) { b.Residual.Linear = nil }},
		{"meta width", func(b *Bundle) {
			b.Meta.Linear = &LinearSpec{Coef: [][]float64{{1, 1}, {1, 1}}}
		}},
		{"base outputs", func(b *Bundle) {
			b.Base[2].Model.Linear = &LinearSpec{Coef: [][]float64{{1, 0, 0}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := loadTestBundle(t)
			tt.mutate(b)
			_, err := b.Build()
			assert.ErrorIs(t, err, ErrInvalidBundle)
		})
	}
}
