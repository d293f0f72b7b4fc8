// Package dataset holds the tabular data model and its file formats.
package dataset

import (
	"math"

	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"gonum.org/v1/gonum/mat"
)

// #region shape
// NumRows returns the row count, or 0 for a dataset without columns.
func (d Dataset) NumRows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0])
}

// NumCols returns the column count.
func (d Dataset) NumCols() int {
	return len(d.Columns)
}

// Validate checks the dataset is non-empty, rectangular, uniquely named and finite.
func (d Dataset) Validate(stage faults.Stage) error {
	if len(d.Columns) == 0 {
		return faults.Data(stage, "dataset has no columns")
	}
	if len(d.Names) != len(d.Columns) {
		return faults.Data(stage, "%d names for %d columns", len(d.Names), len(d.Columns))
	}
	seen := make(map[string]struct{}, len(d.Names))
	for i, name := range d.Names {
		if name == "" {
			return faults.Data(stage, "column %d has an empty name", i)
		}
		if _, dup := seen[name]; dup {
			return faults.Data(stage, "duplicate column name %q", name)
		}
		seen[name] = struct{}{}
	}
	rows := len(d.Columns[0])
	for i, col := range d.Columns {
		if len(col) == 0 {
			return faults.Data(stage, "column %q is empty", d.Names[i])
		}
		if len(col) != rows {
			return faults.Data(stage, "column %q has %d rows, expected %d", d.Names[i], len(col), rows)
		}
		for r, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return faults.Data(stage, "column %q row %d is not a finite number", d.Names[i], r)
			}
		}
	}
	return nil
}

// #endregion shape

// #region copy
// Clone returns a deep copy.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Names:   append([]string(nil), d.Names...),
		Columns: make([][]float64, len(d.Columns)),
	}
	for i, col := range d.Columns {
		out.Columns[i] = append([]float64(nil), col...)
	}
	return out
}

// Rows returns a new dataset holding the given rows, in the given order.
func (d Dataset) Rows(idx []int) Dataset {
	out := Dataset{
		Names:   append([]string(nil), d.Names...),
		Columns: make([][]float64, len(d.Columns)),
	}
	for j, col := range d.Columns {
		picked := make([]float64, len(idx))
		for i, r := range idx {
			picked[i] = col[r]
		}
		out.Columns[j] = picked
	}
	return out
}

// #endregion copy

// #region matrix
// Matrix converts the dataset to a row-major rows x cols matrix.
// The dataset must have at least one row and one column.
func (d Dataset) Matrix() *mat.Dense {
	rows, cols := d.NumRows(), d.NumCols()
	data := make([]float64, rows*cols)
	for j, col := range d.Columns {
		for i, v := range col {
			data[i*cols+j] = v
		}
	}
	return mat.NewDense(rows, cols, data)
}

// FromMatrix builds a dataset from m using names for the columns.
func FromMatrix(m *mat.Dense, names []string) Dataset {
	rows, cols := m.Dims()
	out := Dataset{
		Names:   append([]string(nil), names...),
		Columns: make([][]float64, cols),
	}
	for j := 0; j < cols; j++ {
		col := make([]float64, rows)
		for i := 0; i < rows; i++ {
			col[i] = m.At(i, j)
		}
		out.Columns[j] = col
	}
	return out
}

// #endregion matrix
