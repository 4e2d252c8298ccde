package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
)

// ResultPrecision is the number of decimals used for every rendered value.
const ResultPrecision = 6

// ResultContentType is the content type of serialized results.
const ResultContentType = "text/csv"

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', ResultPrecision, 64)
}

// ToResultTable labels the engine output. ids may be nil; when given it must
// have one value per row.
func ToResultTable(y *mat.Dense, idColumn string, ids []string) (*domain.PredictionResult, error) {
	rows, k := y.Dims()
	if ids != nil && len(ids) != rows {
		return nil, fmt.Errorf("%w: %d identifiers for %d rows", domain.ErrDimensionMismatch, len(ids), rows)
	}

	res := &domain.PredictionResult{
		Targets: make([]string, k),
		Values:  make([][]float64, rows),
	}
	if ids != nil {
		res.IDColumn = idColumn
		res.IDs = append([]string(nil), ids...)
	}
	for j := 0; j < k; j++ {
		res.Targets[j] = domain.OutputColumnName(j)
	}
	for i := 0; i < rows; i++ {
		res.Values[i] = mat.Row(nil, i, y)
	}
	return res, nil
}

// Serialize renders the result as CSV with a header row.
func Serialize(res *domain.PredictionResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(res.Columns()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i := range res.Values {
		if err := w.Write(recordOf(res, i)); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ToDisplayRows renders the result for presentation with the same order and
// formatting as Serialize.
func ToDisplayRows(res *domain.PredictionResult) []domain.DisplayRow {
	cols := res.Columns()
	rows := make([]domain.DisplayRow, 0, res.NumRows())
	for i := range res.Values {
		rec := recordOf(res, i)
		row := make(domain.DisplayRow, len(cols))
		for j, c := range cols {
			row[j] = domain.DisplayCell{Column: c, Value: rec[j]}
		}
		rows = append(rows, row)
	}
	return rows
}

func recordOf(res *domain.PredictionResult, i int) []string {
	rec := make([]string, 0, len(res.Targets)+1)
	if res.HasIdentifier() {
		rec = append(rec, res.IDs[i])
	}
	for _, v := range res.Values[i] {
		rec = append(rec, formatValue(v))
	}
	return rec
}

// ParseResult reads back the output of Serialize. A leading column that is
// not a BlendProperty column is taken as the identifier.
func ParseResult(data []byte) (*domain.PredictionResult, error) {
	table, err := ParseTable(data)
	if err != nil {
		return nil, err
	}

	res := &domain.PredictionResult{}
	cols := table.Columns
	if len(cols) > 0 && cols[0].Name != domain.OutputColumnName(0) {
		res.IDColumn = cols[0].Name
		res.IDs = cols[0].Values
		cols = cols[1:]
	}
	for j, c := range cols {
		if c.Name != domain.OutputColumnName(j) {
			return nil, fmt.Errorf("%w: unexpected result column %q", domain.ErrMalformedInput, c.Name)
		}
		res.Targets = append(res.Targets, c.Name)
	}

	rows := table.NumRows()
	res.Values = make([][]float64, rows)
	for i := 0; i < rows; i++ {
		res.Values[i] = make([]float64, len(cols))
		for j, c := range cols {
			v, err := strconv.ParseFloat(c.Values[i], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %v", domain.ErrMalformedInput, i+1, c.Name, err)
			}
			res.Values[i][j] = v
		}
	}
	return res, nil
}
