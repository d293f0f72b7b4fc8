// Package normalize implements per-column min-max scaling and its exact inverse.
// Parameters are fitted once on the derive-time dataset and reused verbatim for
// every later compress and decompress call.
package normalize

import (
	"math"

	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
)

// #region params
// ColumnParams holds the scaling of one column. Range == 0 marks a degenerate column.
type ColumnParams struct {
	Name    string
	TrueMin float64
	Range   float64
}

// Params are the fitted scaling parameters, in dataset column order.
type Params struct {
	Columns []ColumnParams
}

// Names returns the column names in order.
func (p Params) Names() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}

// Identity returns parameters that leave data unchanged, for inputs that are
// normalized externally.
func Identity(names []string) Params {
	p := Params{Columns: make([]ColumnParams, len(names))}
	for i, n := range names {
		p.Columns[i] = ColumnParams{Name: n, TrueMin: 0, Range: 1}
	}
	return p
}

// #endregion params

// #region fit
// Fit computes min and range for every column of ds.
func Fit(ds dataset.Dataset) (Params, error) {
	if err := ds.Validate(faults.StageNormalize); err != nil {
		return Params{}, err
	}
	p := Params{Columns: make([]ColumnParams, ds.NumCols())}
	for j, col := range ds.Columns {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range col {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		p.Columns[j] = ColumnParams{Name: ds.Names[j], TrueMin: lo, Range: hi - lo}
	}
	return p, nil
}

// #endregion fit

// #region apply-invert
// Apply scales every column into [0, 1] using p. Degenerate columns become 0.
func Apply(ds dataset.Dataset, p Params) (dataset.Dataset, error) {
	if err := check(ds, p); err != nil {
		return dataset.Dataset{}, err
	}
	out := ds.Clone()
	for j, col := range out.Columns {
		c := p.Columns[j]
		for i, v := range col {
			if c.Range > 0 {
				col[i] = (v - c.TrueMin) / c.Range
			} else {
				col[i] = 0
			}
		}
	}
	return out, nil
}

// Invert maps normalized values back to the original scale. Every value of a
// degenerate column maps back to its TrueMin.
func Invert(ds dataset.Dataset, p Params) (dataset.Dataset, error) {
	if err := check(ds, p); err != nil {
		return dataset.Dataset{}, err
	}
	out := ds.Clone()
	for j, col := range out.Columns {
		c := p.Columns[j]
		for i, v := range col {
			if c.Range > 0 {
				col[i] = v*c.Range + c.TrueMin
			} else {
				col[i] = c.TrueMin
			}
		}
	}
	return out, nil
}

// #endregion apply-invert

// #region helpers
func check(ds dataset.Dataset, p Params) error {
	if err := ds.Validate(faults.StageNormalize); err != nil {
		return err
	}
	if len(p.Columns) != ds.NumCols() {
		return faults.Shape(faults.StageNormalize, "dataset has %d columns, params have %d", ds.NumCols(), len(p.Columns))
	}
	for j, c := range p.Columns {
		if c.Range < 0 || math.IsNaN(c.Range) {
			return faults.Data(faults.StageNormalize, "column %q has invalid range %v", c.Name, c.Range)
		}
		if ds.Names[j] != c.Name {
			return faults.Shape(faults.StageNormalize, "column %d is %q, params expect %q", j, ds.Names[j], c.Name)
		}
	}
	return nil
}

// #endregion helpers
