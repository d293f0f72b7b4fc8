package pipeline

import (
	"context"

	"github.com/danielpatrickdp/baler/go-codec/internal/config"
	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"github.com/danielpatrickdp/baler/go-codec/internal/engine"
	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"github.com/danielpatrickdp/baler/go-codec/internal/model"
	"github.com/danielpatrickdp/baler/go-codec/internal/normalize"
	"github.com/danielpatrickdp/baler/go-codec/internal/split"
	"github.com/danielpatrickdp/baler/go-codec/internal/store"
	"github.com/danielpatrickdp/baler/go-codec/internal/train"
)

// #region derive
// DeriveResult is what a derive run produced.
type DeriveResult struct {
	Version store.VersionRecord
	Params  normalize.Params
	Train   train.Result
}

// DeriveDataset fits normalization on ds, splits it, trains a fresh model and
// persists model, parameters and loss log as a new active version.
func DeriveDataset(ctx context.Context, ds dataset.Dataset, cfg config.Training, st *store.Store, rc *config.RunContext) (DeriveResult, error) {
	if err := ds.Validate(faults.StageLoad); err != nil {
		return DeriveResult{}, err
	}

	var params normalize.Params
	if cfg.CustomNorm {
		params = normalize.Identity(ds.Names)
	} else {
		p, err := normalize.Fit(ds)
		if err != nil {
			return DeriveResult{}, err
		}
		params = p
	}
	normalized, err := normalize.Apply(ds, params)
	if err != nil {
		return DeriveResult{}, err
	}

	trainSet, testSet, err := split.Split(normalized, cfg.TestSize, cfg.Seed)
	if err != nil {
		return DeriveResult{}, err
	}

	z, err := engine.LatentWidth(ds.NumCols(), cfg.CompressionRatio)
	if err != nil {
		return DeriveResult{}, faults.Restage(err, faults.StageModel)
	}
	rc.Columns = append([]string(nil), ds.Names...)
	rc.NFeatures = ds.NumCols()
	rc.ZDim = z

	m, err := model.New(model.Arch{Name: cfg.ModelName, NFeatures: rc.NFeatures, ZDim: z}, cfg.Seed)
	if err != nil {
		return DeriveResult{}, err
	}
	rc.Logger.Info("derive start",
		"model", cfg.ModelName, "n_features", rc.NFeatures, "z_dim", z,
		"parameters", m.ParameterCount(), "train_rows", trainSet.NumRows(), "val_rows", testSet.NumRows(),
		"device", rc.Device.String())

	res, err := train.Run(ctx, m, trainSet, testSet, cfg, rc)
	if err != nil {
		return DeriveResult{}, err
	}

	rec, err := st.Save(m, params, res.Log, cfg.JSON())
	if err != nil {
		return DeriveResult{}, faults.Restage(err, faults.StageStore)
	}
	rc.VersionID = rec.VersionID
	rc.Logger.Info("derive complete",
		"version", rec.VersionID, "epochs", len(res.Log), "best_val_loss", res.State.BestLoss,
		"early_stopped", res.State.Stopped, "duration", res.Duration.String())
	return DeriveResult{Version: rec, Params: params, Train: res}, nil
}

// Derive runs derive for a project: it reads cfg.InputPath, trains, stores
// the version and writes the loss log CSV.
func Derive(ctx context.Context, proj Project, cfg config.Training, st *store.Store, rc *config.RunContext) (res DeriveResult, err error) {
	defer func() { recordRun(st, rc, cfg, err) }()

	ds, err := dataset.LoadFile(cfg.InputPath)
	if err != nil {
		return DeriveResult{}, err
	}
	res, err = DeriveDataset(ctx, ds, cfg, st, rc)
	if err != nil {
		return DeriveResult{}, err
	}
	if err := res.Train.Log.SaveCSV(proj.LossCSV()); err != nil {
		return res, err
	}
	return res, nil
}

// #endregion derive
