package dataset

import "gonum.org/v1/gonum/mat"

// #region dataset
// Dataset is an ordered set of named numeric columns of equal length.
type Dataset struct {
	Names   []string
	Columns [][]float64
}

// #endregion dataset

// #region source
// Kind tags the representation held by a Source.
type Kind int

const (
	KindDataset Kind = iota // column-oriented Dataset
	KindFrame               // row-oriented records with a header
	KindMatrix              // bare numeric matrix, names optional
)

// String names the source variant.
func (k Kind) String() string {
	switch k {
	case KindDataset:
		return "dataset"
	case KindFrame:
		return "frame"
	case KindMatrix:
		return "matrix"
	default:
		return "unknown"
	}
}

// Frame holds row-oriented records, as read from or written to tabular files.
type Frame struct {
	Header []string
	Rows   [][]float64
}

// Source is a tagged variant over the inputs accepted by Export.
// Exactly the field named by Kind is read.
type Source struct {
	Kind    Kind
	Dataset Dataset
	Frame   Frame
	Matrix  *mat.Dense
	Names   []string // column names for KindMatrix; generated when empty
}

// #endregion source
