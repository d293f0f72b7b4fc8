// Package engine derives the latent width and runs batched encode and decode
// passes through a trained autoencoder.
package engine

import (
	"math"

	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"github.com/danielpatrickdp/baler/go-codec/internal/model"
	"gonum.org/v1/gonum/mat"
)

// DefaultBatchRows bounds the rows pushed through the model at once.
const DefaultBatchRows = 4096

// #region latent-width
// LatentWidth is floor(nFeatures / ratio). Derive and compress both call it,
// so the same inputs always give the same width.
func LatentWidth(nFeatures int, ratio float64) (int, error) {
	if nFeatures < 1 {
		return 0, faults.ConfigMismatch(faults.StageCompress, "n_features must be >= 1, got %d", nFeatures)
	}
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return 0, faults.ConfigMismatch(faults.StageCompress, "compression_ratio must be a positive number, got %v", ratio)
	}
	z := int(math.Floor(float64(nFeatures) / ratio))
	if z < 1 {
		return 0, faults.ConfigMismatch(faults.StageCompress, "compression_ratio %v leaves no latent dimension for %d features", ratio, nFeatures)
	}
	return z, nil
}

// CheckArch verifies a loaded model matches the current data width and ratio.
func CheckArch(m model.Autoencoder, nFeatures int, ratio float64) error {
	z, err := LatentWidth(nFeatures, ratio)
	if err != nil {
		return err
	}
	arch := m.Arch()
	if arch.NFeatures != nFeatures {
		return faults.ConfigMismatch(faults.StageCompress, "model %s expects %d features, data has %d", arch.Name, arch.NFeatures, nFeatures)
	}
	if arch.ZDim != z {
		return faults.ConfigMismatch(faults.StageCompress, "model %s has latent width %d, ratio %v gives %d", arch.Name, arch.ZDim, ratio, z)
	}
	return nil
}

// #endregion latent-width

// #region engine
// Engine runs a model over whole matrices in bounded batches.
type Engine struct {
	model     model.Autoencoder
	batchRows int
}

// New wraps m. batchRows <= 0 selects DefaultBatchRows.
func New(m model.Autoencoder, batchRows int) *Engine {
	if batchRows <= 0 {
		batchRows = DefaultBatchRows
	}
	return &Engine{model: m, batchRows: batchRows}
}

// Model returns the wrapped autoencoder.
func (e *Engine) Model() model.Autoencoder { return e.model }

// Compress encodes normalized rows (rows x NFeatures) into rows x ZDim.
func (e *Engine) Compress(normalized *mat.Dense) (*mat.Dense, error) {
	arch := e.model.Arch()
	if err := checkWidth(normalized, arch.NFeatures, faults.StageCompress, "input"); err != nil {
		return nil, err
	}
	return e.batched(normalized, arch.ZDim, e.model.Encode, faults.StageCompress)
}

// Decompress decodes latent rows (rows x ZDim) into rows x NFeatures.
func (e *Engine) Decompress(latent *mat.Dense) (*mat.Dense, error) {
	arch := e.model.Arch()
	if err := checkWidth(latent, arch.ZDim, faults.StageDecompress, "latent"); err != nil {
		return nil, err
	}
	return e.batched(latent, arch.NFeatures, e.model.Decode, faults.StageDecompress)
}

func (e *Engine) batched(x *mat.Dense, outCols int, fn func(*mat.Dense) (*mat.Dense, error), stage faults.Stage) (*mat.Dense, error) {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, outCols, nil)
	for start := 0; start < rows; start += e.batchRows {
		end := min(start+e.batchRows, rows)
		y, err := fn(x.Slice(start, end, 0, cols).(*mat.Dense))
		if err != nil {
			return nil, faults.Restage(err, stage)
		}
		if _, c := y.Dims(); c != outCols {
			return nil, faults.Shape(stage, "model produced width %d, expected %d", c, outCols)
		}
		out.Slice(start, end, 0, outCols).(*mat.Dense).Copy(y)
	}
	return out, nil
}

func checkWidth(m *mat.Dense, want int, stage faults.Stage, what string) error {
	if m == nil {
		return faults.Shape(stage, "%s is empty", what)
	}
	if _, c := m.Dims(); c != want {
		return faults.Shape(stage, "%s has width %d, expected %d", what, c, want)
	}
	return nil
}

// #endregion engine
