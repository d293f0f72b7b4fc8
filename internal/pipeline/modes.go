// Package pipeline wires the derive, compress and decompress modes from the
// normalizer, splitter, training loop, engine and model store.
package pipeline

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/baler/go-codec/internal/artifact"
	"github.com/danielpatrickdp/baler/go-codec/internal/config"
	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"github.com/danielpatrickdp/baler/go-codec/internal/eval"
	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"github.com/danielpatrickdp/baler/go-codec/internal/logging"
	"github.com/danielpatrickdp/baler/go-codec/internal/store"
)

// #region compress
// Compress encodes the dataset at inputPath with the stored model version
// (the active one when versionID is empty) and writes the project artifact.
func Compress(proj Project, inputPath, versionID string, cfg config.Training, st *store.Store, rc *config.RunContext) (a *artifact.Artifact, err error) {
	defer func() { recordRun(st, rc, cfg, err) }()

	ds, err := dataset.LoadFile(inputPath)
	if err != nil {
		return nil, err
	}
	l, err := Load(st, cfg.ModelName, versionID, rc.Metrics.Codec)
	if err != nil {
		return nil, err
	}
	rc.VersionID = l.Version.VersionID
	rc.Columns = append([]string(nil), ds.Names...)
	rc.NFeatures = ds.NumCols()
	rc.ZDim = l.Version.Arch.ZDim

	a, err = l.Compress(ds, cfg.CompressionRatio)
	if err != nil {
		return nil, err
	}
	if err := artifact.WriteFile(proj.ArtifactPath(), a); err != nil {
		return nil, err
	}
	rc.Logger.Info("compressed", "rows", a.Rows(), "n_features", a.NFeatures, "z_dim", a.ZDim,
		"version", a.ModelVersion, "path", proj.ArtifactPath())
	return a, nil
}

// #endregion compress

// #region decompress
// Decompress reads the project artifact, rebuilds the model from the
// architecture stored with its version and writes the reconstruction as CSV.
func Decompress(proj Project, cfg config.Training, st *store.Store, rc *config.RunContext) (ds dataset.Dataset, err error) {
	defer func() { recordRun(st, rc, cfg, err) }()

	a, err := artifact.ReadFile(proj.ArtifactPath())
	if err != nil {
		return dataset.Dataset{}, err
	}
	l, err := Load(st, a.ModelName, a.ModelVersion, rc.Metrics.Codec)
	if err != nil {
		return dataset.Dataset{}, err
	}
	rc.VersionID = l.Version.VersionID
	rc.Columns = l.Params.Names()
	rc.NFeatures = l.Version.Arch.NFeatures
	rc.ZDim = l.Version.Arch.ZDim

	ds, err = l.Decompress(a)
	if err != nil {
		return dataset.Dataset{}, err
	}
	if err := dataset.ExportFile(proj.DecompressedPath(), dataset.Source{Kind: dataset.KindDataset, Dataset: ds}, faults.StageDecompress); err != nil {
		return dataset.Dataset{}, err
	}
	rc.Logger.Info("decompressed", "rows", ds.NumRows(), "columns", ds.NumCols(), "path", proj.DecompressedPath())
	return ds, nil
}

// #endregion decompress

// #region evaluate
// Evaluate compares the original input with the project's decompressed output.
func Evaluate(proj Project, inputPath string, ec eval.EvalConfig, cfg config.Training, st *store.Store, rc *config.RunContext) (res eval.EvalResult, err error) {
	defer func() { recordRun(st, rc, cfg, err) }()

	original, err := dataset.LoadFile(inputPath)
	if err != nil {
		return eval.EvalResult{}, err
	}
	recon, err := dataset.LoadFile(proj.DecompressedPath())
	if err != nil {
		return eval.EvalResult{}, err
	}
	res, err = eval.NewEvalHarness(ec).Run(original, recon)
	if err != nil {
		return eval.EvalResult{}, err
	}
	rc.Logger.Info("evaluated", "passed", res.Passed, "reason", res.Reason)
	return res, nil
}

// #endregion evaluate

// #region run-log
func recordRun(st *store.Store, rc *config.RunContext, cfg config.Training, err error) {
	entry := logging.RunEntry{
		RunID:      rc.RunID,
		VersionID:  rc.VersionID,
		Mode:       rc.Mode,
		ConfigJSON: cfg.JSON(),
		Outcome:    logging.OutcomeOK,
		Duration:   time.Since(rc.Started),
	}
	if err != nil {
		entry.Outcome = logging.OutcomeError
		entry.Detail = err.Error()
		var fe *faults.Error
		if errors.As(err, &fe) {
			entry.Stage = string(fe.Stage)
		}
	}
	if logErr := logging.LogRun(st.DB(), entry); logErr != nil {
		rc.Logger.Warn("run log not written", "err", logErr)
	}
}

// #endregion run-log
