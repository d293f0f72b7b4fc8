package eval

import (
	"errors"
	"math"
	"testing"

	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
)

func makeData(cols map[string][]float64, order ...string) dataset.Dataset {
	ds := dataset.Dataset{}
	for _, n := range order {
		ds.Names = append(ds.Names, n)
		ds.Columns = append(ds.Columns, append([]float64(nil), cols[n]...))
	}
	return ds
}

func TestEvalPassesOnExactReconstruction(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	orig := makeData(map[string][]float64{"a": {1, 2, 3}, "b": {5, 5, 5}}, "a", "b")

	result, err := h.Run(orig, orig.Clone())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Passed {
		t.Fatalf("expected pass on exact reconstruction, got fail: %s", result.Reason)
	}
	if len(result.Metrics) == 0 {
		t.Fatal("expected metrics")
	}
	for _, c := range result.Columns {
		if c.RMSE != 0 || c.MaxAbs != 0 {
			t.Fatalf("expected zero error for %s, got %+v", c.Name, c)
		}
	}
}

func TestEvalFailsOnLargeError(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	orig := makeData(map[string][]float64{"a": {0, 1, 2, 3, 4}}, "a")
	recon := makeData(map[string][]float64{"a": {1, 2, 3, 4, 5}}, "a")

	result, err := h.Run(orig, recon)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Passed {
		t.Fatal("expected fail on large error")
	}
	c := result.Columns[0]
	if c.RMSE != 1 || c.MaxAbs != 1 || c.Range != 4 {
		t.Fatalf("unexpected column error: %+v", c)
	}
	// zero true value is left out: (1 + 1/2 + 1/3 + 1/4) / 4
	want := (1 + 0.5 + 1.0/3 + 0.25) / 4
	if math.Abs(c.MeanRelError-want) > 1e-12 {
		t.Fatalf("mean relative error = %g, want %g", c.MeanRelError, want)
	}
}

func TestEvalSkipsDegenerateColumnInNRMSE(t *testing.T) {
	config := DefaultEvalConfig()
	config.MaxMeanRelError = 10
	h := NewEvalHarness(config)
	orig := makeData(map[string][]float64{"flat": {2, 2, 2}, "ok": {0, 1, 2}}, "flat", "ok")
	recon := makeData(map[string][]float64{"flat": {2.1, 2.1, 2.1}, "ok": {0, 1, 2}}, "flat", "ok")

	result, err := h.Run(orig, recon)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Metrics[0].Name != "nrmse" || result.Metrics[0].Value != 0 {
		t.Fatalf("expected zero nrmse, got %+v", result.Metrics[0])
	}
}

func TestEvalShapeMismatch(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	orig := makeData(map[string][]float64{"a": {1, 2}, "b": {3, 4}}, "a", "b")

	cases := []dataset.Dataset{
		makeData(map[string][]float64{"a": {1, 2}}, "a"),
		makeData(map[string][]float64{"a": {1}, "b": {3}}, "a", "b"),
		makeData(map[string][]float64{"a": {1, 2}, "c": {3, 4}}, "a", "c"),
	}
	for i, recon := range cases {
		if _, err := h.Run(orig, recon); !errors.Is(err, faults.ErrShape) {
			t.Fatalf("case %d: expected shape error, got %v", i, err)
		}
	}
}
