package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
	"blendpredict/internal/core/ports/output"
	"blendpredict/internal/testutil"
)

type recordingMetrics struct {
	stages   []domain.RunStage
	finished []domain.RunStage
	category []domain.ErrorCategory
}

func (m *recordingMetrics) ObserveStage(stage domain.RunStage, _ time.Duration) {
	m.stages = append(m.stages, stage)
}

func (m *recordingMetrics) RunFinished(stage domain.RunStage, category domain.ErrorCategory) {
	m.finished = append(m.finished, stage)
	m.category = append(m.category, category)
}

func newTestRunService(k int) (*RunService, *testutil.MockArtifactStore, *testutil.MockPredictionCatalog, *recordingMetrics) {
	store := new(testutil.MockArtifactStore)
	catalog := new(testutil.MockPredictionCatalog)
	metrics := &recordingMetrics{}
	engine := NewInferenceEngine(testutil.StubArtifacts(testFeatures, k))
	svc := NewRunService(engine, store, catalog, "ID", metrics)
	svc.now = func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store, catalog, metrics
}

const threeRowUpload = "ID,f1,f2,f3\n1,1,0,0\n2,0,1,1\n3,1,1,1\n"

func TestRunService_SubmitRun(t *testing.T) {
	svc, store, catalog, metrics := newTestRunService(5)
	runID := uuid.New()

	var stored []byte
	store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "predictions/u1_20250701120000_")
	}), mock.Anything, "text/csv").Run(func(args mock.Arguments) {
		stored = args.Get(2).([]byte)
	}).Return(nil)
	catalog.On("Record", mock.Anything, "u1", "test.csv", mock.AnythingOfType("string"), mock.Anything).Return(runID, nil)

	outcome, err := svc.SubmitRun(context.Background(), "u1", "test.csv", []byte(threeRowUpload))
	require.NoError(t, err)

	assert.Equal(t, runID, outcome.RunID)
	assert.Equal(t, domain.StageCompleted, outcome.Stage)
	assert.Equal(t,
		[]string{"ID", "BlendProperty1", "BlendProperty2", "BlendProperty3", "BlendProperty4", "BlendProperty5"},
		outcome.Result.Columns())
	assert.Equal(t, []string{"1", "2", "3"}, outcome.Result.IDs)
	require.Len(t, outcome.Result.Values, 3)
	for _, row := range outcome.Result.Values {
		assert.Len(t, row, 5)
	}
	// 6 * (j+1) * rowsum + 0.5 with row sums 1, 2, 3
	assert.InDelta(t, 6.5, outcome.Result.Values[0][0], 1e-9)
	assert.InDelta(t, 60.5, outcome.Result.Values[1][4], 1e-9)

	// The artifact and the catalog snapshot are the same bytes.
	catalog.AssertCalled(t, "Record", mock.Anything, "u1", "test.csv", outcome.Location, stored)
	lines := strings.Split(strings.TrimSpace(string(stored)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID,BlendProperty1,BlendProperty2,BlendProperty3,BlendProperty4,BlendProperty5", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,6.500000,"))

	assert.Equal(t, []domain.RunStage{
		domain.StageParsed, domain.StageInferred, domain.StageMaterialized,
		domain.StageStored, domain.StageCataloged, domain.StageCompleted,
	}, metrics.stages)
	assert.Equal(t, []domain.RunStage{domain.StageCompleted}, metrics.finished)
	store.AssertExpectations(t)
	catalog.AssertExpectations(t)
}

func TestRunService_SubmitRun_WithoutIdentifier(t *testing.T) {
	svc, store, catalog, _ := newTestRunService(2)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	catalog.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(uuid.New(), nil)

	outcome, err := svc.SubmitRun(context.Background(), "u1", "x.csv", []byte("f1,f2,f3\n1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"BlendProperty1", "BlendProperty2"}, outcome.Result.Columns())
}

func TestRunService_SubmitRun_RejectedBeforeSideEffects(t *testing.T) {
	tests := []struct {
		name  string
		owner string
		data  string
		want  error
		stage domain.RunStage
	}{
		{"missing owner", "", threeRowUpload, domain.ErrMissingOwnerID, domain.StageReceived},
		{"missing file", "u1", "", domain.ErrMissingFile, domain.StageReceived},
		{"schema mismatch", "u1", "ID,f1,f2\n1,1,2\n", domain.ErrSchemaMismatch, domain.StageParsed},
		{"non numeric", "u1", "ID,f1,f2,f3\n1,a,2,3\n", domain.ErrMalformedInput, domain.StageParsed},
		{"ragged", "u1", "ID,f1,f2,f3\n1,2\n", domain.ErrMalformedInput, domain.StageParsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, catalog, metrics := newTestRunService(5)

			outcome, err := svc.SubmitRun(context.Background(), tt.owner, "x.csv", []byte(tt.data))
			assert.Nil(t, outcome)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.CategoryBadInput, domain.CategoryOf(err))

			var stageErr *domain.StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)

			store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			catalog.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, []domain.RunStage{domain.StageFailed}, metrics.finished)
		})
	}
}

func TestRunService_SubmitRun_ModelNotLoaded(t *testing.T) {
	store := new(testutil.MockArtifactStore)
	catalog := new(testutil.MockPredictionCatalog)
	svc := NewRunService(NewInferenceEngine(nil), store, catalog, "ID", nil)

	_, err := svc.SubmitRun(context.Background(), "u1", "x.csv", []byte(threeRowUpload))
	assert.ErrorIs(t, err, domain.ErrInferenceUnavailable)
	assert.Equal(t, domain.CategoryUnavailable, domain.CategoryOf(err))
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunService_SubmitRun_StoreFailure(t *testing.T) {
	svc, store, catalog, _ := newTestRunService(5)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.ErrStoreUnavailable)

	outcome, err := svc.SubmitRun(context.Background(), "u1", "x.csv", []byte(threeRowUpload))
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageStored, stageErr.Stage)
	catalog.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunService_SubmitRun_CatalogFailureIsPartial(t *testing.T) {
	svc, store, catalog, _ := newTestRunService(5)

	artifacts := map[string][]byte{}
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		artifacts[args.String(1)] = args.Get(2).([]byte)
	}).Return(nil)
	catalog.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(uuid.Nil, domain.ErrCatalogUnavailable)
	catalog.On("ListByOwner", mock.Anything, mock.Anything).Return([]*domain.PredictionSummary{}, 0, nil)

	outcome, err := svc.SubmitRun(context.Background(), "u1", "x.csv", []byte(threeRowUpload))
	require.Error(t, err)
	require.NotNil(t, outcome)
	assert.ErrorIs(t, err, domain.ErrPartiallyCompleted)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	assert.Equal(t, domain.CategoryPartial, domain.CategoryOf(err))
	assert.Equal(t, uuid.Nil, outcome.RunID)
	assert.Equal(t, domain.StageStored, outcome.Stage)

	var partial *domain.PartialRunError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, outcome.Location, partial.Location)

	// The artifact is still retrievable by key but absent from history.
	store.On("Get", mock.Anything, outcome.Location).Return(artifacts[outcome.Location], nil)
	data, err := svc.store.Get(context.Background(), outcome.Location)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	items, total, err := svc.ListRuns(context.Background(), ports.RunListFilter{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}

func TestRunService_ListRuns_Paging(t *testing.T) {
	svc, _, catalog, _ := newTestRunService(1)

	catalog.On("ListByOwner", mock.Anything, ports.RunListFilter{OwnerID: "u1", Limit: 20, Offset: 0}).
		Return([]*domain.PredictionSummary{{Filename: "a.csv"}}, 1, nil).Once()
	catalog.On("ListByOwner", mock.Anything, ports.RunListFilter{OwnerID: "u1", Limit: 100, Offset: 5}).
		Return([]*domain.PredictionSummary{}, 1, nil).Once()

	items, total, err := svc.ListRuns(context.Background(), ports.RunListFilter{OwnerID: "u1", Offset: -3})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, total)

	_, _, err = svc.ListRuns(context.Background(), ports.RunListFilter{OwnerID: "u1", Limit: 500, Offset: 5})
	require.NoError(t, err)
	catalog.AssertExpectations(t)
}

func TestRunService_ListRuns_MissingOwner(t *testing.T) {
	svc, _, _, _ := newTestRunService(1)

	_, _, err := svc.ListRuns(context.Background(), ports.RunListFilter{})
	assert.ErrorIs(t, err, domain.ErrMissingOwnerID)
}

func TestRunService_ViewRun(t *testing.T) {
	svc, _, catalog, _ := newTestRunService(2)
	runID := uuid.New()
	catalog.On("Fetch", mock.Anything, runID).Return(&domain.PredictionRecord{
		ID:      runID,
		OwnerID: "u1",
		Result:  []byte("ID,BlendProperty1,BlendProperty2\n7,1.000000,2.000000\n"),
	}, nil)

	rec, res, err := svc.ViewRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.OwnerID)
	assert.Equal(t, []string{"7"}, res.IDs)
	assert.Equal(t, [][]float64{{1, 2}}, res.Values)
}

func TestRunService_DownloadArtifact(t *testing.T) {
	svc, store, catalog, _ := newTestRunService(1)
	runID := uuid.New()
	catalog.On("Fetch", mock.Anything, runID).Return(&domain.PredictionRecord{ID: runID, FilePath: "predictions/k.csv"}, nil)
	store.On("Get", mock.Anything, "predictions/k.csv").Return([]byte("BlendProperty1\n1.000000\n"), nil)

	data, contentType, err := svc.DownloadArtifact(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "BlendProperty1\n1.000000\n", string(data))
}

func TestRunService_DownloadArtifact_Errors(t *testing.T) {
	svc, store, catalog, _ := newTestRunService(1)
	missingRun := uuid.New()
	orphanRun := uuid.New()
	catalog.On("Fetch", mock.Anything, missingRun).Return(nil, domain.ErrRunNotFound)
	catalog.On("Fetch", mock.Anything, orphanRun).Return(&domain.PredictionRecord{ID: orphanRun, FilePath: "predictions/gone.csv"}, nil)
	store.On("Get", mock.Anything, "predictions/gone.csv").Return(nil, domain.ErrArtifactNotFound)

	_, _, err := svc.DownloadArtifact(context.Background(), missingRun)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	_, _, err = svc.DownloadArtifact(context.Background(), orphanRun)
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	assert.Equal(t, domain.CategoryNotFound, domain.CategoryOf(err))
}

func TestRunService_SubmitRun_InferenceFailure(t *testing.T) {
	a := testutil.StubArtifacts(testFeatures, 2)
	a.Meta = testutil.FuncPredictor(func(x *mat.Dense) (*mat.Dense, error) {
		return nil, errors.New("meta exploded")
	})
	store := new(testutil.MockArtifactStore)
	catalog := new(testutil.MockPredictionCatalog)
	svc := NewRunService(NewInferenceEngine(a), store, catalog, "ID", nil)

	_, err := svc.SubmitRun(context.Background(), "u1", "x.csv", []byte(threeRowUpload))
	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageInferred, stageErr.Stage)
	assert.Equal(t, domain.CategoryInternal, domain.CategoryOf(err))
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScore(t *testing.T) {
	engine := NewInferenceEngine(testutil.StubArtifacts(testFeatures, 2))

	res, err := Score(context.Background(), engine, "ID", []byte(threeRowUpload))
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "BlendProperty1", "BlendProperty2"}, res.Columns())
	assert.InDelta(t, 24.5, res.Values[1][1], 1e-9)

	_, err = Score(context.Background(), NewInferenceEngine(nil), "ID", []byte(threeRowUpload))
	assert.ErrorIs(t, err, domain.ErrInferenceUnavailable)
}
