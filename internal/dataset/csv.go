package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
)

// #region read
// ReadCSV parses a header row of column names followed by numeric rows.
func ReadCSV(r io.Reader) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Dataset{}, faults.Data(faults.StageLoad, "input has no header row")
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("read header: %w", err)
	}

	ds := Dataset{
		Names:   make([]string, len(header)),
		Columns: make([][]float64, len(header)),
	}
	for i, h := range header {
		ds.Names[i] = strings.TrimSpace(h)
	}

	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Dataset{}, faults.Data(faults.StageLoad, "line %d: %v", line, err)
		}
		for j, s := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return Dataset{}, faults.Data(faults.StageLoad, "line %d column %q: %q is not numeric", line, ds.Names[j], s)
			}
			ds.Columns[j] = append(ds.Columns[j], v)
		}
	}

	if err := ds.Validate(faults.StageLoad); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// LoadFile reads a CSV dataset from path.
func LoadFile(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// #endregion read

// #region write
// WriteCSV writes the dataset with a header row. Values are formatted with the
// shortest representation that parses back to the same float64.
func WriteCSV(w io.Writer, ds Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Names); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, ds.NumCols())
	for i := 0; i < ds.NumRows(); i++ {
		for j, col := range ds.Columns {
			rec[j] = strconv.FormatFloat(col[i], 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveFile writes ds to path as CSV.
func SaveFile(path string, ds Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	if err := WriteCSV(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// #endregion write
