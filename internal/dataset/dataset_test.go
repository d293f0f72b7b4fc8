package dataset

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"gonum.org/v1/gonum/mat"
)

func sample() Dataset {
	return Dataset{
		Names:   []string{"pt", "eta", "phi"},
		Columns: [][]float64{{1, 2, 3}, {0.5, -0.5, 0}, {7, 7, 7}},
	}
}

func TestValidate(t *testing.T) {
	if err := sample().Validate(faults.StageLoad); err != nil {
		t.Fatalf("valid dataset rejected: %v", err)
	}

	cases := map[string]Dataset{
		"no columns": {},
		"ragged":     {Names: []string{"a", "b"}, Columns: [][]float64{{1, 2}, {1}}},
		"duplicate":  {Names: []string{"a", "a"}, Columns: [][]float64{{1}, {2}}},
		"empty col":  {Names: []string{"a"}, Columns: [][]float64{{}}},
		"nan":        {Names: []string{"a"}, Columns: [][]float64{{math.NaN()}}},
		"inf":        {Names: []string{"a"}, Columns: [][]float64{{math.Inf(1)}}},
		"names":      {Names: []string{"a"}, Columns: [][]float64{{1}, {2}}},
	}
	for name, ds := range cases {
		err := ds.Validate(faults.StageNormalize)
		if !errors.Is(err, faults.ErrData) {
			t.Fatalf("%s: expected ErrData, got %v", name, err)
		}
	}
}

func TestCSVRoundTrip(t *testing.T) {
	ds := sample()
	ds.Columns[0][1] = 0.1 + 0.2

	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	for j := range ds.Columns {
		if got.Names[j] != ds.Names[j] {
			t.Fatalf("name %d: %s != %s", j, got.Names[j], ds.Names[j])
		}
		for i := range ds.Columns[j] {
			if got.Columns[j][i] != ds.Columns[j][i] {
				t.Fatalf("value (%d,%d): %v != %v", i, j, got.Columns[j][i], ds.Columns[j][i])
			}
		}
	}
}

func TestReadCSVNonNumeric(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,x\n"))
	if !errors.Is(err, faults.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
}

func TestReadCSVHeaderOnly(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n"))
	if !errors.Is(err, faults.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	ds := sample()
	m := ds.Matrix()
	r, c := m.Dims()
	if r != 3 || c != 3 {
		t.Fatalf("expected 3x3, got %dx%d", r, c)
	}
	if m.At(1, 1) != -0.5 {
		t.Fatalf("expected -0.5 at (1,1), got %v", m.At(1, 1))
	}
	back := FromMatrix(m, ds.Names)
	if back.Columns[2][0] != 7 {
		t.Fatalf("expected 7, got %v", back.Columns[2][0])
	}
}

func TestRowsSelection(t *testing.T) {
	ds := sample()
	sub := ds.Rows([]int{2, 0})
	if sub.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", sub.NumRows())
	}
	if sub.Columns[0][0] != 3 || sub.Columns[0][1] != 1 {
		t.Fatalf("unexpected order: %v", sub.Columns[0])
	}
	sub.Columns[0][0] = 99
	if ds.Columns[0][2] != 3 {
		t.Fatal("Rows must copy, not alias")
	}
}

func TestExportVariants(t *testing.T) {
	want := "a,b\n1,2\n3,4\n"

	sources := []Source{
		{Kind: KindDataset, Dataset: Dataset{Names: []string{"a", "b"}, Columns: [][]float64{{1, 3}, {2, 4}}}},
		{Kind: KindFrame, Frame: Frame{Header: []string{"a", "b"}, Rows: [][]float64{{1, 2}, {3, 4}}}},
		{Kind: KindMatrix, Matrix: mat.NewDense(2, 2, []float64{1, 2, 3, 4}), Names: []string{"a", "b"}},
	}
	for _, src := range sources {
		var buf bytes.Buffer
		if err := Export(&buf, src, faults.StageDecompress); err != nil {
			t.Fatalf("%s: Export: %v", src.Kind, err)
		}
		if buf.String() != want {
			t.Fatalf("%s: expected %q, got %q", src.Kind, want, buf.String())
		}
	}
}

func TestExportMatrixGeneratedNames(t *testing.T) {
	var buf bytes.Buffer
	src := Source{Kind: KindMatrix, Matrix: mat.NewDense(1, 2, []float64{5, 6})}
	if err := Export(&buf, src, faults.StageDecompress); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "col_0,col_1\n") {
		t.Fatalf("unexpected header: %q", buf.String())
	}
}

func TestExportRaggedFrame(t *testing.T) {
	src := Source{Kind: KindFrame, Frame: Frame{Header: []string{"a", "b"}, Rows: [][]float64{{1}}}}
	if err := Export(&bytes.Buffer{}, src, faults.StageDecompress); !errors.Is(err, faults.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
}

func TestExportReportsCallerStage(t *testing.T) {
	ds := sample()
	ds.Columns[1][2] = math.Inf(1)
	src := Source{Kind: KindDataset, Dataset: ds}

	err := Export(&bytes.Buffer{}, src, faults.StageDecompress)
	if !errors.Is(err, faults.ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
	if stage, _ := faults.StageOf(err); stage != faults.StageDecompress {
		t.Fatalf("expected stage %s, got %s", faults.StageDecompress, stage)
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	err = ExportFile(path, src, faults.StageDecompress)
	if stage, _ := faults.StageOf(err); stage != faults.StageDecompress {
		t.Fatalf("expected stage %s, got %s (%v)", faults.StageDecompress, stage, err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("rejected export must not create %s", path)
	}

	ragged := Source{Kind: KindFrame, Frame: Frame{Header: []string{"a", "b"}, Rows: [][]float64{{1}}}}
	err = Export(&bytes.Buffer{}, ragged, faults.StageDecompress)
	if stage, _ := faults.StageOf(err); stage != faults.StageDecompress {
		t.Fatalf("conversion error: expected stage %s, got %s", faults.StageDecompress, stage)
	}
}
