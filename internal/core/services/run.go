package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"blendpredict/internal/core/domain"
	"blendpredict/internal/core/ports/output"
)

// RunMetrics receives stage timings and run outcomes. A nil RunMetrics is
// allowed.
type RunMetrics interface {
	ObserveStage(stage domain.RunStage, elapsed time.Duration)
	RunFinished(stage domain.RunStage, category domain.ErrorCategory)
}

// RunService drives one upload through parse, inference, materialization,
// artifact write and catalog write.
type RunService struct {
	engine   *InferenceEngine
	store    ports.ArtifactStore
	catalog  ports.PredictionCatalog
	idColumn string
	metrics  RunMetrics
	now      func() time.Time
}

func NewRunService(engine *InferenceEngine, store ports.ArtifactStore, catalog ports.PredictionCatalog, idColumn string, metrics RunMetrics) *RunService {
	return &RunService{
		engine:   engine,
		store:    store,
		catalog:  catalog,
		idColumn: idColumn,
		metrics:  metrics,
		now:      time.Now,
	}
}

type runTracker struct {
	entry   *log.Entry
	metrics RunMetrics
	stage   domain.RunStage
	mark    time.Time
}

func (t *runTracker) advance(next domain.RunStage) {
	elapsed := time.Since(t.mark)
	if t.metrics != nil {
		t.metrics.ObserveStage(next, elapsed)
	}
	t.entry.WithFields(log.Fields{
		"stage":      next,
		"elapsed_ms": elapsed.Milliseconds(),
	}).Debug("run stage reached")
	t.stage = next
	t.mark = time.Now()
}

// fail moves the run to failed(attempted, err).
func (t *runTracker) fail(attempted domain.RunStage, err error) error {
	category := domain.CategoryOf(err)
	if t.metrics != nil {
		t.metrics.RunFinished(domain.StageFailed, category)
	}
	entry := t.entry.WithError(err).WithFields(log.Fields{
		"stage":    attempted,
		"category": category,
	})
	if category == domain.CategoryInternal || category == domain.CategoryUnavailable || category == domain.CategoryPartial {
		entry.Error("run failed")
	} else {
		entry.Info("run rejected")
	}
	t.stage = domain.StageFailed
	return &domain.StageError{Stage: attempted, Err: err}
}

// SubmitRun parses, scores and persists one uploaded file. Nothing is written
// before inference succeeds. If the catalog write fails after the artifact
// write, the outcome is returned together with a PartialRunError.
func (s *RunService) SubmitRun(ctx context.Context, ownerID, filename string, data []byte) (*domain.RunOutcome, error) {
	t := &runTracker{
		entry: log.WithFields(log.Fields{
			"owner_id": ownerID,
			"filename": filename,
		}),
		metrics: s.metrics,
		stage:   domain.StageReceived,
		mark:    time.Now(),
	}

	if strings.TrimSpace(ownerID) == "" {
		return nil, t.fail(domain.StageReceived, domain.ErrMissingOwnerID)
	}
	if len(data) == 0 {
		return nil, t.fail(domain.StageReceived, domain.ErrMissingFile)
	}

	contract, err := s.engine.Contract()
	if err != nil {
		return nil, t.fail(domain.StageParsed, err)
	}
	table, err := ParseTable(data)
	if err != nil {
		return nil, t.fail(domain.StageParsed, err)
	}
	features, ids := ExtractIdentifier(table, s.idColumn)
	x, err := ValidateSchema(features, contract)
	if err != nil {
		return nil, t.fail(domain.StageParsed, err)
	}
	t.advance(domain.StageParsed)

	y, err := s.engine.Infer(ctx, x)
	if err != nil {
		return nil, t.fail(domain.StageInferred, err)
	}
	t.advance(domain.StageInferred)

	result, err := ToResultTable(y, s.idColumn, ids)
	if err != nil {
		return nil, t.fail(domain.StageMaterialized, err)
	}
	payload, err := Serialize(result)
	if err != nil {
		return nil, t.fail(domain.StageMaterialized, err)
	}
	t.advance(domain.StageMaterialized)

	key := NewLocationKey(ownerID, s.now())
	if err := s.store.Put(ctx, key, payload, ResultContentType); err != nil {
		return nil, t.fail(domain.StageStored, err)
	}
	t.advance(domain.StageStored)

	outcome := &domain.RunOutcome{
		Location: key,
		Result:   result,
		Stage:    domain.StageStored,
	}

	runID, err := s.catalog.Record(ctx, ownerID, filename, key, payload)
	if err != nil {
		// The artifact stays where it is; see PartialRunError.
		return outcome, t.fail(domain.StageCataloged, &domain.PartialRunError{Location: key, Err: err})
	}
	t.advance(domain.StageCataloged)

	outcome.RunID = runID
	outcome.Stage = domain.StageCompleted
	t.advance(domain.StageCompleted)
	if s.metrics != nil {
		s.metrics.RunFinished(domain.StageCompleted, "")
	}
	t.entry.WithFields(log.Fields{
		"run_id":   runID,
		"location": key,
		"rows":     result.NumRows(),
	}).Info("run completed")

	return outcome, nil
}

func (s *RunService) GetRun(ctx context.Context, runID uuid.UUID) (*domain.PredictionRecord, error) {
	return s.catalog.Fetch(ctx, runID)
}

// ViewRun returns the record and its result decoded from the inlined
// snapshot, without touching the artifact store.
func (s *RunService) ViewRun(ctx context.Context, runID uuid.UUID) (*domain.PredictionRecord, *domain.PredictionResult, error) {
	rec, err := s.catalog.Fetch(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	res, err := ParseResult(rec.Result)
	if err != nil {
		return nil, nil, fmt.Errorf("decode stored result of run %s: %w", runID, err)
	}
	return rec, res, nil
}

func (s *RunService) ListRuns(ctx context.Context, filter ports.RunListFilter) ([]*domain.PredictionSummary, int, error) {
	if strings.TrimSpace(filter.OwnerID) == "" {
		return nil, 0, domain.ErrMissingOwnerID
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.catalog.ListByOwner(ctx, filter)
}

// DownloadArtifact resolves run -> location key -> stored bytes.
func (s *RunService) DownloadArtifact(ctx context.Context, runID uuid.UUID) ([]byte, string, error) {
	rec, err := s.catalog.Fetch(ctx, runID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.store.Get(ctx, rec.FilePath)
	if err != nil {
		return nil, "", err
	}
	return data, ResultContentType, nil
}
