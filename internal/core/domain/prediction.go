package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutputColumnPrefix names the target columns: BlendProperty1..BlendPropertyK.
const OutputColumnPrefix = "BlendProperty"

// OutputColumnName returns the 1-based output column name for target i (0-based).
func OutputColumnName(i int) string {
	return fmt.Sprintf("%s%d", OutputColumnPrefix, i+1)
}

// PredictionResult is the materialized output of one run. IDColumn is empty
// when the upload had no identifier column.
type PredictionResult struct {
	IDColumn string
	IDs      []string
	Targets  []string
	Values   [][]float64
}

func (r *PredictionResult) HasIdentifier() bool {
	return r.IDColumn != ""
}

func (r *PredictionResult) NumRows() int {
	return len(r.Values)
}

// Columns returns the header in output order: identifier first, then targets.
func (r *PredictionResult) Columns() []string {
	cols := make([]string, 0, len(r.Targets)+1)
	if r.HasIdentifier() {
		cols = append(cols, r.IDColumn)
	}
	return append(cols, r.Targets...)
}

// DisplayCell is one (column, value) pair of a display row.
type DisplayCell struct {
	Column string
	Value  string
}

// DisplayRow keeps cells in header order.
type DisplayRow []DisplayCell

// PredictionRecord is one catalog row. Result holds the serialized
// PredictionResult so a run can be redisplayed without the artifact store.
type PredictionRecord struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Filename   string    `json:"filename"`
	UploadTime time.Time `json:"upload_time"`
	FilePath   string    `json:"file_path"`
	Result     []byte    `json:"result"`
}

// PredictionSummary is a catalog row without the inlined result.
type PredictionSummary struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Filename   string    `json:"filename"`
	UploadTime time.Time `json:"upload_time"`
	FilePath   string    `json:"file_path"`
}
