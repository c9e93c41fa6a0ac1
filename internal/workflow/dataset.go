package workflow

import "fmt"

// Dataset is the tabular payload agents exchange through the cache.
// The engine only checks its shape; cell values are opaque.
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewDataset creates an empty dataset with the given columns.
func NewDataset(columns ...string) *Dataset {
	return &Dataset{Columns: columns, Rows: make([][]any, 0)}
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// ColumnIndex returns the position of a named column.
func (d *Dataset) ColumnIndex(name string) (int, error) {
	for i, col := range d.Columns {
		if col == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %q not found", name)
}

// Append adds a row. Rows shorter than the column set are padded with
// nils so later consumers can index safely.
func (d *Dataset) Append(row []any) {
	for len(row) < len(d.Columns) {
		row = append(row, nil)
	}
	d.Rows = append(d.Rows, row)
}

// Column returns all values of a named column.
func (d *Dataset) Column(name string) ([]any, error) {
	idx, err := d.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(d.Rows))
	for _, row := range d.Rows {
		if idx < len(row) {
			values = append(values, row[idx])
		} else {
			values = append(values, nil)
		}
	}
	return values, nil
}
