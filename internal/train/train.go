// Package train runs the epoch loop: a shuffled fit phase and an ordered
// validation phase per epoch, driven by the stopping and rate policies.
package train

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/danielpatrickdp/baler/go-codec/internal/config"
	"github.com/danielpatrickdp/baler/go-codec/internal/dataset"
	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"github.com/danielpatrickdp/baler/go-codec/internal/model"
	"github.com/danielpatrickdp/baler/go-codec/internal/policy"
	"gonum.org/v1/gonum/mat"
)

// #region run
// Run trains m on trainSet and validates on testSet once per epoch. Both
// sets must already be normalized. The context is checked between epochs.
func Run(ctx context.Context, m model.Autoencoder, trainSet, testSet dataset.Dataset, cfg config.Training, rc *config.RunContext) (Result, error) {
	nFeatures := m.Arch().NFeatures
	for _, s := range []struct {
		name string
		ds   dataset.Dataset
	}{{"training", trainSet}, {"validation", testSet}} {
		if s.ds.NumRows() == 0 {
			return Result{}, faults.Data(faults.StageTrain, "%s set is empty", s.name)
		}
		if s.ds.NumCols() != nFeatures {
			return Result{}, faults.Shape(faults.StageTrain, "%s set has %d columns, model expects %d", s.name, s.ds.NumCols(), nFeatures)
		}
	}

	started := time.Now()
	xTrain, xTest := trainSet.Matrix(), testSet.Matrix()
	reg := cfg.Regularization()
	rng := rand.New(rand.NewSource(rc.Seed))
	stopper := policy.NewEarlyStopping(cfg.StoppingConfig())
	scheduler := policy.NewPlateauScheduler(cfg.RateConfig(), cfg.LR)
	log := rc.Logger
	tm := rc.Metrics.Training

	state := State{BestLoss: math.Inf(1), LearningRate: cfg.LR}
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Result{Log: state.History, State: state, Duration: time.Since(started)}, fmt.Errorf("train epoch %d: %w", epoch, err)
		}
		epochStart := time.Now()
		lr := state.LearningRate

		fit, err := runPhase(m, xTrain, phase{grad: true, lr: lr, batch: cfg.BatchSize, reg: reg, rng: rng, epoch: epoch})
		if err != nil {
			return Result{Log: state.History, State: state}, err
		}
		val, err := runPhase(m, xTest, phase{grad: false, batch: cfg.BatchSize, reg: reg, epoch: epoch})
		if err != nil {
			return Result{Log: state.History, State: state}, err
		}
		trainLoss, valLoss := fit.Total(), val.Total()

		state.Epoch = epoch
		state.History = append(state.History, Epoch{
			Epoch:        epoch,
			TrainLoss:    trainLoss,
			ValLoss:      valLoss,
			LR:           lr,
			TrainMSE:     fit.MSE,
			TrainPenalty: fit.Penalty,
		})
		if valLoss < state.BestLoss {
			state.BestLoss = valLoss
		}

		if cfg.LRScheduler {
			d := scheduler.Observe(valLoss)
			state.LearningRate = d.LearningRate
			state.RateCounter = d.Counter
			if d.Decayed {
				tm.RateDecays.Inc()
				log.Info("learning rate reduced", "epoch", epoch, "lr", d.LearningRate)
			}
		}

		tm.ObserveEpoch(trainLoss, valLoss, lr, time.Since(epochStart).Seconds())
		log.Info("epoch", "epoch", epoch, "of", cfg.Epochs, "train_loss", trainLoss, "mse", fit.MSE, "penalty", fit.Penalty, "val_loss", valLoss, "lr", lr)

		if cfg.EarlyStopping {
			stop := stopper.Observe(valLoss)
			state.StopCounter = stopper.Counter()
			if stop {
				state.Stopped = true
				tm.EarlyStops.Inc()
				log.Info("early stopping", "epoch", epoch, "best_val_loss", stopper.Best(), "patience", cfg.Patience)
				break
			}
		}
	}

	return Result{Log: state.History, State: state, Duration: time.Since(started)}, nil
}

// #endregion run

// #region phase
type phase struct {
	grad  bool
	lr    float64
	batch int
	reg   model.Regularization
	rng   *rand.Rand // fit phase only
	epoch int
}

// runPhase walks x in batches and returns the mean batch loss, both parts
// averaged separately. With grad set
// the rows are visited in a fresh random order and every batch updates the
// model; otherwise rows are visited in order and the model is left untouched.
func runPhase(m model.Autoencoder, x *mat.Dense, p phase) (model.Loss, error) {
	rows, cols := x.Dims()
	var order []int
	if p.grad {
		order = p.rng.Perm(rows)
	}

	var sum model.Loss
	batches := 0
	for start := 0; start < rows; start += p.batch {
		end := min(start+p.batch, rows)
		var b *mat.Dense
		if order != nil {
			b = mat.NewDense(end-start, cols, nil)
			for i, r := range order[start:end] {
				b.SetRow(i, x.RawRowView(r))
			}
		} else {
			b = x.Slice(start, end, 0, cols).(*mat.Dense)
		}

		var loss model.Loss
		var err error
		if p.grad {
			loss, err = m.TrainStep(b, p.reg, p.lr)
		} else {
			loss, err = m.Loss(b, p.reg)
		}
		if err != nil {
			return model.Loss{}, faults.Restage(err, faults.StageTrain)
		}
		if total := loss.Total(); math.IsNaN(total) || math.IsInf(total, 0) {
			name := "validation"
			if p.grad {
				name = "training"
			}
			return model.Loss{}, faults.Divergence(faults.StageTrain, "epoch %d %s batch %d: loss is %v", p.epoch, name, batches, total)
		}
		sum.MSE += loss.MSE
		sum.Penalty += loss.Penalty
		batches++
	}
	n := float64(batches)
	return model.Loss{MSE: sum.MSE / n, Penalty: sum.Penalty / n}, nil
}

// #endregion phase
