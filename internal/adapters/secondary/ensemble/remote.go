package ensemble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
)

// RemoteSpec points at an HTTP service that scores matrices, for learners
// that cannot be exported to a portable form.
type RemoteSpec struct {
	URL     string `json:"url"`
	Inputs  int    `json:"inputs"`
	Outputs int    `json:"outputs"`
	Timeout string `json:"timeout,omitempty"`
}

// Remote delegates Predict to an external service using the contract
// POST {"rows": [[...]]} -> {"predictions": [[...]]}.
type Remote struct {
	endpoint string
	inputs   int
	outputs  int
	client   *http.Client
}

type remoteRequest struct {
	Rows [][]float64 `json:"rows"`
}

type remoteResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

func NewRemote(spec RemoteSpec) (*Remote, error) {
	if spec.URL == "" {
		return nil, fmt.Errorf("%w: remote model url is required", ErrInvalidBundle)
	}
	if spec.Inputs <= 0 || spec.Outputs <= 0 {
		return nil, fmt.Errorf("%w: remote model must declare inputs and outputs", ErrInvalidBundle)
	}
	timeout := 30 * time.Second
	if spec.Timeout != "" {
		d, err := time.ParseDuration(spec.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: remote timeout: %v", ErrInvalidBundle, err)
		}
		timeout = d
	}
	return &Remote{
		endpoint: spec.URL,
		inputs:   spec.Inputs,
		outputs:  spec.Outputs,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
	}, nil
}

func (r *Remote) Inputs() int  { return r.inputs }
func (r *Remote) Outputs() int { return r.outputs }

func (r *Remote) Predict(ctx context.Context, x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != r.inputs {
		return nil, fmt.Errorf("%w: remote model takes %d inputs, got %d", domain.ErrDimensionMismatch, r.inputs, cols)
	}

	payload := remoteRequest{Rows: make([][]float64, rows)}
	for i := 0; i < rows; i++ {
		payload.Rows[i] = mat.Row(nil, i, x)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal remote request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create remote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.WithFields(log.Fields{
		"url":  r.endpoint,
		"rows": rows,
	}).Debug("calling remote model")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: remote model %s: %v", domain.ErrInferenceUnavailable, r.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: remote model %s returned %d: %s", domain.ErrInferenceUnavailable, r.endpoint, resp.StatusCode, msg)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode remote response: %w", err)
	}
	if len(out.Predictions) != rows {
		return nil, fmt.Errorf("%w: remote model returned %d rows, want %d", domain.ErrDimensionMismatch, len(out.Predictions), rows)
	}

	y := mat.NewDense(rows, r.outputs, nil)
	for i, p := range out.Predictions {
		if len(p) != r.outputs {
			return nil, fmt.Errorf("%w: remote model row %d has %d values, want %d", domain.ErrDimensionMismatch, i, len(p), r.outputs)
		}
		y.SetRow(i, p)
	}
	return y, nil
}
