package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Input Errors
// ============================================================================

var (
	ErrMalformedInput = errors.New("malformed input file")
	ErrSchemaMismatch = errors.New("input columns do not match the model feature contract")
	ErrMissingOwnerID = errors.New("owner ID is required (X-Owner-ID header)")
	ErrMissingFile    = errors.New("no file selected")
)

// ============================================================================
// Inference Errors
// ============================================================================

var (
	ErrInferenceUnavailable = errors.New("inference pipeline is not loaded")
	ErrDimensionMismatch    = errors.New("matrix dimensions violate the pipeline contract")
)

// ============================================================================
// Persistence Errors
// ============================================================================

// Not found errors
var (
	ErrArtifactNotFound = errors.New("prediction artifact not found")
	ErrRunNotFound      = errors.New("prediction run not found")
)

// Service unavailable errors
var (
	ErrStoreUnavailable   = errors.New("artifact store unavailable")
	ErrCatalogUnavailable = errors.New("prediction catalog unavailable")
)

// Artifacts are write-once
var ErrArtifactExists = errors.New("prediction artifact already exists")

// ErrPartiallyCompleted marks a run whose artifact was written but whose
// catalog row was not.
var ErrPartiallyCompleted = errors.New("prediction stored but not recorded in history")

// ============================================================================
// Error Categories
// ============================================================================

type ErrorCategory string

const (
	CategoryBadInput    ErrorCategory = "bad_input"
	CategoryUnavailable ErrorCategory = "unavailable"
	CategoryNotFound    ErrorCategory = "not_found"
	CategoryPartial     ErrorCategory = "partial"
	CategoryInternal    ErrorCategory = "internal"
)

// CategoryOf returns the user-facing category of err. Partial completion is
// checked first because a PartialRunError also unwraps to
// ErrCatalogUnavailable.
func CategoryOf(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPartiallyCompleted):
		return CategoryPartial
	case errors.Is(err, ErrMalformedInput),
		errors.Is(err, ErrSchemaMismatch),
		errors.Is(err, ErrMissingOwnerID),
		errors.Is(err, ErrMissingFile):
		return CategoryBadInput
	case errors.Is(err, ErrArtifactNotFound),
		errors.Is(err, ErrRunNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrInferenceUnavailable),
		errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrCatalogUnavailable):
		return CategoryUnavailable
	default:
		return CategoryInternal
	}
}

// ============================================================================
// Run Failure Errors
// ============================================================================

// StageError is the terminal failed(stage, cause) state of a run.
type StageError struct {
	Stage RunStage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("run failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// PartialRunError is returned when the artifact write succeeded and the
// catalog write did not. Location is the orphaned artifact key.
type PartialRunError struct {
	Location string
	Err      error
}

func (e *PartialRunError) Error() string {
	return fmt.Sprintf("%v: artifact %s: %v", ErrPartiallyCompleted, e.Location, e.Err)
}

func (e *PartialRunError) Unwrap() []error {
	return []error{ErrPartiallyCompleted, e.Err}
}
