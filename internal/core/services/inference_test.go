package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
	"blendpredict/internal/testutil"
)

var testFeatures = []string{"f1", "f2", "f3"}

func TestInferenceEngine_Shape(t *testing.T) {
	engine := NewInferenceEngine(testutil.StubArtifacts(testFeatures, 5))
	x := mat.NewDense(4, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		0, 0, 0,
	})

	y, err := engine.Infer(context.Background(), x)
	require.NoError(t, err)
	r, c := y.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 5, c)

	// 6 * (j+1) * rowsum + 0.5
	assert.InDelta(t, 36.5, y.At(0, 0), 1e-9)
	assert.InDelta(t, 6*5*6+0.5, y.At(0, 4), 1e-9)
	assert.InDelta(t, 0.5, y.At(3, 2), 1e-9)
}

func TestInferenceEngine_Idempotent(t *testing.T) {
	engine := NewInferenceEngine(testutil.StubArtifacts(testFeatures, 2))
	x := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	first, err := engine.Infer(context.Background(), x)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*mat.Dense, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			y, err := engine.Infer(context.Background(), x)
			assert.NoError(t, err)
			results[i] = y
		}()
	}
	wg.Wait()

	for _, y := range results {
		assert.True(t, mat.Equal(first, y))
	}
}

func TestInferenceEngine_BaseOrderIsFixed(t *testing.T) {
	a := testutil.StubArtifacts(testFeatures, 1)
	var seen *mat.Dense
	a.Meta = testutil.FuncPredictor(func(x *mat.Dense) (*mat.Dense, error) {
		seen = mat.DenseCopyOf(x)
		rows, _ := x.Dims()
		return mat.NewDense(rows, 1, nil), nil
	})
	engine := NewInferenceEngine(a)

	_, err := engine.Infer(context.Background(), mat.NewDense(1, 3, []float64{1, 1, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 6, 9}, seen.RawRowView(0))
}

func TestInferenceEngine_NotLoaded(t *testing.T) {
	engine := NewInferenceEngine(nil)

	assert.ErrorIs(t, engine.Ready(), domain.ErrInferenceUnavailable)
	_, err := engine.Contract()
	assert.ErrorIs(t, err, domain.ErrInferenceUnavailable)
	_, err = engine.Infer(context.Background(), mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, domain.ErrInferenceUnavailable)
}

func TestInferenceEngine_MissingComponent(t *testing.T) {
	a := testutil.StubArtifacts(testFeatures, 2)
	a.Residual = nil

	_, err := NewInferenceEngine(a).Infer(context.Background(), mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, domain.ErrInferenceUnavailable)
}

func TestInferenceEngine_WrongWidth(t *testing.T) {
	engine := NewInferenceEngine(testutil.StubArtifacts(testFeatures, 2))

	_, err := engine.Infer(context.Background(), mat.NewDense(1, 4, nil))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestInferenceEngine_BaseLearnerShapeMismatch(t *testing.T) {
	a := testutil.StubArtifacts(testFeatures, 2)
	a.Base[1].Model = testutil.ConstantPredictor(3, 1)

	_, err := NewInferenceEngine(a).Infer(context.Background(), mat.NewDense(2, 3, nil))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestInferenceEngine_BaseLearnerError(t *testing.T) {
	a := testutil.StubArtifacts(testFeatures, 2)
	failing := new(testutil.MockPredictor)
	boom := errors.New("boom")
	failing.On("Predict", mock.Anything, mock.Anything).Return(nil, boom)
	a.Base[2].Model = failing

	_, err := NewInferenceEngine(a).Infer(context.Background(), mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, boom)
	failing.AssertExpectations(t)
}
