package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"blendpredict/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseTable reads a delimited upload with a header row into an InputTable.
func ParseTable(data []byte) (*domain.InputTable, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", domain.ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrMalformedInput, err)
	}

	seen := make(map[string]bool, len(header))
	table := &domain.InputTable{Columns: make([]domain.Column, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: column %d has an empty name", domain.ErrMalformedInput, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q", domain.ErrMalformedInput, name)
		}
		seen[name] = true
		table.Columns[i].Name = name
	}

	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.ErrFieldCount lands here for ragged rows.
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
		}
		for i, v := range record {
			table.Columns[i].Values = append(table.Columns[i].Values, strings.TrimSpace(v))
		}
	}

	if table.NumRows() == 0 {
		return nil, fmt.Errorf("%w: no data rows", domain.ErrMalformedInput)
	}
	return table, nil
}

// ExtractIdentifier removes the identifier column when present. The returned
// table shares column storage with the input.
func ExtractIdentifier(table *domain.InputTable, columnName string) (*domain.InputTable, []string) {
	idx := table.Index(columnName)
	if columnName == "" || idx < 0 {
		return table, nil
	}

	ids := table.Columns[idx].Values
	rest := make([]domain.Column, 0, len(table.Columns)-1)
	rest = append(rest, table.Columns[:idx]...)
	rest = append(rest, table.Columns[idx+1:]...)
	return &domain.InputTable{Columns: rest}, ids
}

// ValidateSchema checks the remaining columns against the feature contract
// and converts them to a numeric matrix in contract order.
func ValidateSchema(table *domain.InputTable, contract domain.FeatureContract) (*mat.Dense, error) {
	want := contract.Width()
	if want <= 0 {
		return nil, fmt.Errorf("%w: feature contract declares no columns", domain.ErrInferenceUnavailable)
	}
	if got := table.NumColumns(); got != want {
		return nil, fmt.Errorf("%w: expected %d feature columns, got %d", domain.ErrSchemaMismatch, want, got)
	}

	order := make([]int, want)
	if len(contract.Columns) == 0 {
		for i := range order {
			order[i] = i
		}
	} else {
		var missing []string
		for i, name := range contract.Columns {
			idx := table.Index(name)
			if idx < 0 {
				missing = append(missing, name)
				continue
			}
			order[i] = idx
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: missing columns %s", domain.ErrSchemaMismatch, strings.Join(missing, ", "))
		}
	}

	rows := table.NumRows()
	if rows == 0 {
		return nil, fmt.Errorf("%w: no data rows", domain.ErrMalformedInput)
	}
	x := mat.NewDense(rows, want, nil)
	for j, src := range order {
		col := table.Columns[src]
		for i, cell := range col.Values {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d column %q: %q is not numeric", domain.ErrMalformedInput, i+1, col.Name, cell)
			}
			x.Set(i, j, v)
		}
	}
	return x, nil
}
