package eval

// #region eval-config
// EvalConfig holds the reconstruction thresholds.
type EvalConfig struct {
	MaxNRMSE        float64 // reject if range-normalized RMSE over all columns exceeds this
	MaxMeanRelError float64 // reject if any column's mean relative error exceeds this
	RelFloor        float64 // true values with |x| below this are left out of relative errors
}

// DefaultEvalConfig returns the thresholds used by the evaluate command.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxNRMSE:        0.05,
		MaxMeanRelError: 0.25,
		RelFloor:        1e-9,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// ColumnError summarizes the reconstruction error of one column.
type ColumnError struct {
	Name         string
	RMSE         float64
	MaxAbs       float64
	MeanRelError float64 // NaN when every true value is below RelFloor
	Range        float64
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the outcome of comparing a reconstruction with its original.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Columns []ColumnError
	Reason  string
}

// #endregion eval-result
