package train

import "time"

// #region loss-log
// Epoch is one row of the loss log. LR is the rate used during the epoch.
// TrainMSE and TrainPenalty split TrainLoss into its two terms.
type Epoch struct {
	Epoch        int
	TrainLoss    float64
	ValLoss      float64
	LR           float64
	TrainMSE     float64
	TrainPenalty float64
}

// LossLog is the per-epoch history of a training run.
type LossLog []Epoch

// #endregion loss-log

// #region state
// State is the mutable state of one training loop. It is created when the
// loop starts and returned by value when it ends.
type State struct {
	Epoch        int
	BestLoss     float64
	StopCounter  int
	RateCounter  int
	LearningRate float64
	Stopped      bool
	History      LossLog
}

// Result is what Run hands back to the pipeline.
type Result struct {
	Log      LossLog
	State    State
	Duration time.Duration
}

// #endregion state
