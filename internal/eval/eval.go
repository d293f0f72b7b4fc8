// Package eval compares a decompressed dataset with the original it came
// from and reports per-column errors and pass/fail checks.
package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
)

// #region eval-harness
// EvalHarness scores reconstructions against fixed thresholds.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run compares reconstructed with original column by column. Both must have
// the same columns in the same order and the same row count.
func (h *EvalHarness) Run(original, reconstructed dataset.Dataset) (EvalResult, error) {
	if err := sameShape(original, reconstructed); err != nil {
		return EvalResult{}, err
	}

	var metrics []EvalMetric
	var failReasons []string
	passed := true

	// 1. Per-column errors
	cols := make([]ColumnError, original.NumCols())
	var nrmseSum float64
	nrmseCols := 0
	for j := range original.Columns {
		ce := columnError(original.Names[j], original.Columns[j], reconstructed.Columns[j], h.config.RelFloor)
		cols[j] = ce
		if ce.Range > 0 {
			r := ce.RMSE / ce.Range
			nrmseSum += r * r
			nrmseCols++
		}
	}

	// 2. Range-normalized RMSE across columns; degenerate columns are skipped
	nrmse := 0.0
	if nrmseCols > 0 {
		nrmse = math.Sqrt(nrmseSum / float64(nrmseCols))
	}
	nrmsePass := nrmse <= h.config.MaxNRMSE
	metrics = append(metrics, EvalMetric{Name: "nrmse", Value: nrmse, Pass: nrmsePass})
	if !nrmsePass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("nrmse %.4g exceeds %.4g", nrmse, h.config.MaxNRMSE))
	}

	// 3. Mean relative error per column
	for _, ce := range cols {
		if math.IsNaN(ce.MeanRelError) {
			continue
		}
		pass := ce.MeanRelError <= h.config.MaxMeanRelError
		metrics = append(metrics, EvalMetric{Name: "rel_error_" + ce.Name, Value: ce.MeanRelError, Pass: pass})
		if !pass {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf("column %s mean relative error %.4g exceeds %.4g", ce.Name, ce.MeanRelError, h.config.MaxMeanRelError))
		}
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Columns: cols,
		Reason:  reason,
	}, nil
}

// #endregion eval-harness

// #region helpers
func sameShape(a, b dataset.Dataset) error {
	if a.NumCols() != b.NumCols() {
		return faults.Shape(faults.StageDecompress, "reconstruction has %d columns, original %d", b.NumCols(), a.NumCols())
	}
	if a.NumRows() != b.NumRows() {
		return faults.Shape(faults.StageDecompress, "reconstruction has %d rows, original %d", b.NumRows(), a.NumRows())
	}
	for j := range a.Names {
		if a.Names[j] != b.Names[j] {
			return faults.Shape(faults.StageDecompress, "column %d is %q in the reconstruction, %q in the original", j, b.Names[j], a.Names[j])
		}
	}
	return nil
}

func columnError(name string, truth, recon []float64, relFloor float64) ColumnError {
	ce := ColumnError{Name: name}
	lo, hi := math.Inf(1), math.Inf(-1)
	var sse, relSum float64
	relN := 0
	for i, x := range truth {
		d := recon[i] - x
		sse += d * d
		ce.MaxAbs = math.Max(ce.MaxAbs, math.Abs(d))
		if math.Abs(x) >= relFloor {
			relSum += math.Abs(d) / math.Abs(x)
			relN++
		}
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	if len(truth) > 0 {
		ce.RMSE = math.Sqrt(sse / float64(len(truth)))
		ce.Range = hi - lo
	}
	ce.MeanRelError = math.NaN()
	if relN > 0 {
		ce.MeanRelError = relSum / float64(relN)
	}
	return ce
}

// #endregion helpers
