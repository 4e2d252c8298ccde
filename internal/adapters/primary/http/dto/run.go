package dto

import (
	"time"

	"github.com/google/uuid"

	"blendpredict/internal/core/domain"
	"blendpredict/internal/core/services"
)

type SubmitRunResponse struct {
	RunID    *uuid.UUID `json:"run_id,omitempty"`
	Location string     `json:"location"`
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	Partial  bool       `json:"partial,omitempty"`
	Warning  string     `json:"warning,omitempty"`
}

type RunSummaryResponse struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	UploadTime string    `json:"upload_time"`
	Location   string    `json:"location"`
}

type ListRunsResponse struct {
	Items      []RunSummaryResponse `json:"items"`
	Total      int                  `json:"total"`
	PageSize   int                  `json:"page_size"`
	NextOffset int                  `json:"next_offset"`
}

type RunDetailResponse struct {
	RunSummaryResponse
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type ErrorResponse struct {
	Error    string               `json:"error"`
	Category domain.ErrorCategory `json:"category"`
}

func ToSubmitRunResponse(o *domain.RunOutcome) SubmitRunResponse {
	resp := SubmitRunResponse{Location: o.Location}
	if o.RunID != uuid.Nil {
		id := o.RunID
		resp.RunID = &id
	}
	resp.Columns, resp.Rows = renderRows(o.Result)
	return resp
}

func ToRunSummaryResponse(s *domain.PredictionSummary) RunSummaryResponse {
	return RunSummaryResponse{
		ID:         s.ID,
		Filename:   s.Filename,
		UploadTime: s.UploadTime.Format(time.RFC3339),
		Location:   s.FilePath,
	}
}

func ToRunDetailResponse(rec *domain.PredictionRecord, res *domain.PredictionResult) RunDetailResponse {
	resp := RunDetailResponse{
		RunSummaryResponse: RunSummaryResponse{
			ID:         rec.ID,
			Filename:   rec.Filename,
			UploadTime: rec.UploadTime.Format(time.RFC3339),
			Location:   rec.FilePath,
		},
	}
	resp.Columns, resp.Rows = renderRows(res)
	return resp
}

// renderRows flattens display rows to string cells in column order.
func renderRows(res *domain.PredictionResult) ([]string, [][]string) {
	if res == nil {
		return []string{}, [][]string{}
	}
	display := services.ToDisplayRows(res)
	rows := make([][]string, 0, len(display))
	for _, row := range display {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cell.Value
		}
		rows = append(rows, cells)
	}
	return res.Columns(), rows
}
