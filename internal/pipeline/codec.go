package pipeline

import (
	"time"

	"github.com/danielpatrickdp/baler/go-codec/internal/artifact"
	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"github.com/danielpatrickdp/baler/go-codec/internal/engine"
	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"github.com/danielpatrickdp/baler/go-codec/internal/metrics"
	"github.com/danielpatrickdp/baler/go-codec/internal/model"
	"github.com/danielpatrickdp/baler/go-codec/internal/normalize"
	"github.com/danielpatrickdp/baler/go-codec/internal/store"
)

// #region loaded
// Loaded is a stored model version ready to compress and decompress. It is
// read-only after loading and may serve any number of calls.
type Loaded struct {
	Version store.VersionRecord
	Params  normalize.Params
	engine  *engine.Engine
	metrics *metrics.Codec
}

// Load reads a model version and its normalization parameters. An empty
// versionID selects the active version of modelName.
func Load(st *store.Store, modelName, versionID string, m *metrics.Codec) (*Loaded, error) {
	if versionID == "" {
		rec, err := st.Active(modelName)
		if err != nil {
			return nil, err
		}
		versionID = rec.VersionID
	}
	ae, rec, err := st.LoadVersion(versionID)
	if err != nil {
		return nil, err
	}
	params, err := st.Params(rec.VersionID)
	if err != nil {
		return nil, err
	}
	return &Loaded{Version: rec, Params: params, engine: engine.New(ae, 0), metrics: m}, nil
}

// Model returns the loaded autoencoder.
func (l *Loaded) Model() model.Autoencoder { return l.engine.Model() }

// #endregion loaded

// #region compress
// Compress normalizes ds with the stored parameters and encodes it. The data
// width and ratio must reproduce the stored architecture.
func (l *Loaded) Compress(ds dataset.Dataset, ratio float64) (a *artifact.Artifact, err error) {
	start := time.Now()
	defer func() { l.record("compress", ds.NumRows(), start, err) }()

	if err := ds.Validate(faults.StageLoad); err != nil {
		return nil, err
	}
	if err := engine.CheckArch(l.Model(), ds.NumCols(), ratio); err != nil {
		return nil, err
	}
	normalized, err := normalize.Apply(ds, l.Params)
	if err != nil {
		return nil, err
	}
	latent, err := l.engine.Compress(normalized.Matrix())
	if err != nil {
		return nil, err
	}
	arch := l.Model().Arch()
	return &artifact.Artifact{
		ModelName:    arch.Name,
		ModelVersion: l.Version.VersionID,
		NFeatures:    arch.NFeatures,
		ZDim:         arch.ZDim,
		Params:       l.Params,
		Latent:       latent,
	}, nil
}

// #endregion compress

// #region decompress
// Decompress decodes a latent artifact produced by this model version and
// maps it back to the original scale and column names.
func (l *Loaded) Decompress(a *artifact.Artifact) (ds dataset.Dataset, err error) {
	start := time.Now()
	defer func() { l.record("decompress", a.Rows(), start, err) }()

	if err := a.Validate(); err != nil {
		return dataset.Dataset{}, err
	}
	arch := l.Model().Arch()
	if a.ModelVersion != "" && a.ModelVersion != l.Version.VersionID {
		return dataset.Dataset{}, faults.ArchitectureMismatch(faults.StageDecompress, "artifact was written by version %s, loaded %s", a.ModelVersion, l.Version.VersionID)
	}
	if a.ModelName != arch.Name || a.NFeatures != arch.NFeatures || a.ZDim != arch.ZDim {
		return dataset.Dataset{}, faults.ArchitectureMismatch(faults.StageDecompress,
			"artifact is %s(%d->%d), model is %s(%d->%d)", a.ModelName, a.NFeatures, a.ZDim, arch.Name, arch.NFeatures, arch.ZDim)
	}
	if !sameParams(a.Params, l.Params) {
		return dataset.Dataset{}, faults.ConfigMismatch(faults.StageDecompress, "artifact normalization parameters differ from version %s", l.Version.VersionID)
	}

	decoded, err := l.engine.Decompress(a.Latent)
	if err != nil {
		return dataset.Dataset{}, err
	}
	normalized := dataset.FromMatrix(decoded, l.Params.Names())
	out, err := normalize.Invert(normalized, l.Params)
	if err != nil {
		return dataset.Dataset{}, faults.Restage(err, faults.StageDecompress)
	}
	return out, nil
}

// #endregion decompress

// #region helpers
func (l *Loaded) record(op string, rows int, start time.Time, err error) {
	if l.metrics == nil {
		return
	}
	l.metrics.Record(op, rows, time.Since(start).Seconds(), err)
}

func sameParams(a, b normalize.Params) bool {
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return true
}

// #endregion helpers
