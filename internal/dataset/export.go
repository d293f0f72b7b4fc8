package dataset

import (
	"fmt"
	"io"
	"os"

	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
)

// #region conversions
// ToDataset converts any Source variant to a column-oriented Dataset.
func ToDataset(src Source) (Dataset, error) {
	switch src.Kind {
	case KindDataset:
		return src.Dataset, nil
	case KindFrame:
		return fromFrame(src.Frame)
	case KindMatrix:
		return fromMatrixSource(src)
	default:
		return Dataset{}, fmt.Errorf("unknown source kind %d", src.Kind)
	}
}

func fromFrame(f Frame) (Dataset, error) {
	ds := Dataset{
		Names:   append([]string(nil), f.Header...),
		Columns: make([][]float64, len(f.Header)),
	}
	for j := range ds.Columns {
		ds.Columns[j] = make([]float64, len(f.Rows))
	}
	for i, row := range f.Rows {
		if len(row) != len(f.Header) {
			return Dataset{}, faults.Data(faults.StageLoad, "frame row %d has %d values, header has %d", i, len(row), len(f.Header))
		}
		for j, v := range row {
			ds.Columns[j][i] = v
		}
	}
	return ds, nil
}

func fromMatrixSource(src Source) (Dataset, error) {
	if src.Matrix == nil {
		return Dataset{}, faults.Data(faults.StageLoad, "matrix source is nil")
	}
	_, cols := src.Matrix.Dims()
	names := src.Names
	if len(names) == 0 {
		names = GeneratedNames(cols)
	}
	if len(names) != cols {
		return Dataset{}, faults.Data(faults.StageLoad, "%d names for a %d-column matrix", len(names), cols)
	}
	return FromMatrix(src.Matrix, names), nil
}

// GeneratedNames returns col_0..col_{n-1}.
func GeneratedNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("col_%d", i)
	}
	return names
}

// #endregion conversions

// #region export
// Export writes any Source as CSV through a single routine. Validation
// failures are attributed to stage.
func Export(w io.Writer, src Source, stage faults.Stage) error {
	ds, err := exportable(src, stage)
	if err != nil {
		return err
	}
	return WriteCSV(w, ds)
}

// ExportFile writes src to path. Nothing is created when src fails validation.
func ExportFile(path string, src Source, stage faults.Stage) error {
	ds, err := exportable(src, stage)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func exportable(src Source, stage faults.Stage) (Dataset, error) {
	ds, err := ToDataset(src)
	if err != nil {
		return Dataset{}, faults.Restage(err, stage)
	}
	if err := ds.Validate(stage); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// #endregion export
