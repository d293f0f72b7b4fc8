// Package artifact encodes the compressed latent matrix and the metadata
// needed to decode it. The file is a protobuf wire message written with
// protowire, so any protobuf reader can inspect it.
package artifact

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"github.com/danielpatrickdp/baler/go-codec/internal/normalize"
	"google.golang.org/protobuf/encoding/protowire"
	"gonum.org/v1/gonum/mat"
)

// FormatVersion is bumped on incompatible layout changes.
const FormatVersion = 1

// #region fields
const (
	fieldFormat       protowire.Number = 1
	fieldModelName    protowire.Number = 2
	fieldModelVersion protowire.Number = 3
	fieldNFeatures    protowire.Number = 4
	fieldZDim         protowire.Number = 5
	fieldRows         protowire.Number = 6
	fieldColumn       protowire.Number = 7
	fieldLatent       protowire.Number = 8

	fieldColName    protowire.Number = 1
	fieldColTrueMin protowire.Number = 2
	fieldColRange   protowire.Number = 3
)

// #endregion fields

// #region artifact
// Artifact is a compressed dataset: rows x ZDim latent values plus the
// column names and normalization parameters of the original data.
type Artifact struct {
	ModelName    string
	ModelVersion string
	NFeatures    int
	ZDim         int
	Params       normalize.Params
	Latent       *mat.Dense
}

// Rows returns the number of compressed rows.
func (a *Artifact) Rows() int {
	if a == nil || a.Latent == nil {
		return 0
	}
	r, _ := a.Latent.Dims()
	return r
}

// Validate checks the metadata against the latent matrix.
func (a *Artifact) Validate() error {
	if a.Latent == nil {
		return faults.Shape(faults.StageDecompress, "artifact has no latent data")
	}
	if _, c := a.Latent.Dims(); c != a.ZDim {
		return faults.Shape(faults.StageDecompress, "latent width %d, metadata says %d", c, a.ZDim)
	}
	if len(a.Params.Columns) != a.NFeatures {
		return faults.Shape(faults.StageDecompress, "%d column params for %d features", len(a.Params.Columns), a.NFeatures)
	}
	return nil
}

// #endregion artifact

// #region marshal
// Marshal encodes the artifact.
func Marshal(a *Artifact) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, faults.Restage(err, faults.StageCompress)
	}
	rows, cols := a.Latent.Dims()

	var b []byte
	b = protowire.AppendTag(b, fieldFormat, protowire.VarintType)
	b = protowire.AppendVarint(b, FormatVersion)
	b = appendString(b, fieldModelName, a.ModelName)
	b = appendString(b, fieldModelVersion, a.ModelVersion)
	b = protowire.AppendTag(b, fieldNFeatures, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.NFeatures))
	b = protowire.AppendTag(b, fieldZDim, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.ZDim))
	b = protowire.AppendTag(b, fieldRows, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rows))

	for _, c := range a.Params.Columns {
		var cb []byte
		cb = appendString(cb, fieldColName, c.Name)
		cb = protowire.AppendTag(cb, fieldColTrueMin, protowire.Fixed64Type)
		cb = protowire.AppendFixed64(cb, math.Float64bits(c.TrueMin))
		cb = protowire.AppendTag(cb, fieldColRange, protowire.Fixed64Type)
		cb = protowire.AppendFixed64(cb, math.Float64bits(c.Range))
		b = protowire.AppendTag(b, fieldColumn, protowire.BytesType)
		b = protowire.AppendBytes(b, cb)
	}

	packed := make([]byte, 0, rows*cols*8)
	for i := 0; i < rows; i++ {
		for _, v := range a.Latent.RawRowView(i) {
			packed = protowire.AppendFixed64(packed, math.Float64bits(v))
		}
	}
	b = protowire.AppendTag(b, fieldLatent, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)
	return b, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// #endregion marshal

// #region unmarshal
var errTruncated = errors.New("truncated field")

// Unmarshal decodes an artifact. Unknown fields are skipped.
func Unmarshal(b []byte) (*Artifact, error) {
	a := &Artifact{}
	var format uint64
	var rows int
	var packed []byte
	sawLatent := false

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, corrupt(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && (num == fieldFormat || num == fieldNFeatures || num == fieldZDim || num == fieldRows):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, corrupt(protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldFormat:
				format = v
			case fieldNFeatures:
				a.NFeatures = int(v)
			case fieldZDim:
				a.ZDim = int(v)
			case fieldRows:
				rows = int(v)
			}
		case typ == protowire.BytesType && (num == fieldModelName || num == fieldModelVersion || num == fieldColumn || num == fieldLatent):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, corrupt(protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case fieldModelName:
				a.ModelName = string(v)
			case fieldModelVersion:
				a.ModelVersion = string(v)
			case fieldColumn:
				c, err := unmarshalColumn(v)
				if err != nil {
					return nil, err
				}
				a.Params.Columns = append(a.Params.Columns, c)
			case fieldLatent:
				packed = v
				sawLatent = true
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, corrupt(protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if format != FormatVersion {
		return nil, faults.Data(faults.StageDecompress, "unsupported artifact format %d", format)
	}
	if !sawLatent || rows < 1 || a.ZDim < 1 {
		return nil, faults.Data(faults.StageDecompress, "artifact has no latent data")
	}
	// rows and z_dim are untrusted; compare by division so the product cannot overflow
	values := len(packed) / 8
	if len(packed)%8 != 0 || values%a.ZDim != 0 || values/a.ZDim != rows {
		return nil, faults.Data(faults.StageDecompress, "corrupt artifact: latent payload has %d bytes, expected %dx%d values", len(packed), rows, a.ZDim)
	}
	data := make([]float64, values)
	for i := range data {
		v, _ := protowire.ConsumeFixed64(packed[i*8:])
		data[i] = math.Float64frombits(v)
	}
	a.Latent = mat.NewDense(rows, a.ZDim, data)

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func unmarshalColumn(b []byte) (normalize.ColumnParams, error) {
	var c normalize.ColumnParams
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return c, corrupt(protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldColName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return c, corrupt(protowire.ParseError(n))
			}
			c.Name = v
			b = b[n:]
		case (num == fieldColTrueMin || num == fieldColRange) && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return c, corrupt(errTruncated)
			}
			if num == fieldColTrueMin {
				c.TrueMin = math.Float64frombits(v)
			} else {
				c.Range = math.Float64frombits(v)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return c, corrupt(protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return c, nil
}

func corrupt(err error) error {
	return faults.Data(faults.StageDecompress, "corrupt artifact: %v", err)
}

// #endregion unmarshal

// #region files
// WriteFile marshals a to path.
func WriteFile(path string, a *Artifact) error {
	b, err := Marshal(a)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// ReadFile loads an artifact from path.
func ReadFile(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return Unmarshal(b)
}

// #endregion files
