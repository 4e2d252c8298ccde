package domain

import "github.com/google/uuid"

type RunStage string

const (
	StageReceived     RunStage = "received"
	StageParsed       RunStage = "parsed"
	StageInferred     RunStage = "inferred"
	StageMaterialized RunStage = "materialized"
	StageStored       RunStage = "stored"
	StageCataloged    RunStage = "cataloged"
	StageCompleted    RunStage = "completed"
	StageFailed       RunStage = "failed"
)

// RunStages lists the non-terminal stages in execution order.
var RunStages = []RunStage{
	StageReceived,
	StageParsed,
	StageInferred,
	StageMaterialized,
	StageStored,
	StageCataloged,
	StageCompleted,
}

// RunOutcome is what a submitted run hands back to the caller. RunID is
// uuid.Nil when the catalog write failed.
type RunOutcome struct {
	RunID    uuid.UUID
	Location string
	Result   *PredictionResult
	Stage    RunStage
}
