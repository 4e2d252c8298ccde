package domain

// Column is one named column of an uploaded table. Cells keep their raw text
// until the schema check converts feature columns to numbers.
type Column struct {
	Name   string
	Values []string
}

// InputTable is a parsed upload. It is owned by a single run.
type InputTable struct {
	Columns []Column
}

func (t *InputTable) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

func (t *InputTable) NumColumns() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

func (t *InputTable) ColumnNames() []string {
	names := make([]string, 0, t.NumColumns())
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Index returns the position of the named column, or -1.
func (t *InputTable) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// FeatureContract is the ordered list of feature names the scaler was fit
// with. When Columns is empty only Count is enforced and columns are taken
// positionally.
type FeatureContract struct {
	Version string   `json:"version"`
	Columns []string `json:"columns,omitempty"`
	Count   int      `json:"count,omitempty"`
}

// Width is the number of feature columns the pipeline expects.
func (c FeatureContract) Width() int {
	if len(c.Columns) > 0 {
		return len(c.Columns)
	}
	return c.Count
}
