// Package policy holds the validation-loss observers that drive training:
// early stopping and learning-rate reduction on plateau. Each keeps its own
// best loss and counter so the two never interfere.
package policy

import "math"

// #region plateau
type plateau struct {
	best    float64
	counter int
}

func newPlateau() plateau {
	return plateau{best: math.Inf(1)}
}

// observe records v and reports whether it improved on the best loss by more than minDelta.
func (p *plateau) observe(v, minDelta float64) bool {
	if p.best-v > minDelta {
		p.best = v
		p.counter = 0
		return true
	}
	p.counter++
	return false
}

// #endregion plateau

// #region early-stopping
// EarlyStopping signals a stop once the validation loss has not improved for
// Patience consecutive observations. Stopped is terminal.
type EarlyStopping struct {
	config StoppingConfig
	state  plateau
	status Status
}

// NewEarlyStopping creates a running early-stopping policy.
func NewEarlyStopping(config StoppingConfig) *EarlyStopping {
	return &EarlyStopping{config: config, state: newPlateau(), status: StatusRunning}
}

// Observe feeds one validation loss and reports whether training must stop.
func (e *EarlyStopping) Observe(valLoss float64) bool {
	if e.status == StatusStopped {
		return true
	}
	if !e.state.observe(valLoss, e.config.MinDelta) && e.state.counter >= e.config.Patience {
		e.status = StatusStopped
	}
	return e.status == StatusStopped
}

// Status reports whether the policy is still running or has stopped.
func (e *EarlyStopping) Status() Status { return e.status }

// Counter is the number of consecutive epochs without improvement.
func (e *EarlyStopping) Counter() int { return e.state.counter }

// Best is the lowest validation loss seen so far.
func (e *EarlyStopping) Best() float64 { return e.state.best }

// #endregion early-stopping

// #region plateau-scheduler
// PlateauScheduler lowers the learning rate when the validation loss stalls.
// It never stops training.
type PlateauScheduler struct {
	config RateConfig
	state  plateau
	lr     float64
	decays int
}

// NewPlateauScheduler creates a scheduler starting at lr.
func NewPlateauScheduler(config RateConfig, lr float64) *PlateauScheduler {
	return &PlateauScheduler{config: config, state: newPlateau(), lr: lr}
}

// Observe feeds one validation loss and returns the rate to use from now on.
func (s *PlateauScheduler) Observe(valLoss float64) RateDecision {
	decayed := false
	if !s.state.observe(valLoss, s.config.MinDelta) && s.state.counter >= s.config.Patience {
		next := math.Max(s.lr*s.config.Factor, s.config.MinLR)
		decayed = next < s.lr
		s.lr = next
		s.decays++
		s.state.counter = 0
	}
	return RateDecision{LearningRate: s.lr, Decayed: decayed, Counter: s.state.counter}
}

// LearningRate is the rate currently in effect.
func (s *PlateauScheduler) LearningRate() float64 { return s.lr }

// Decays counts how many times the rate has been reduced.
func (s *PlateauScheduler) Decays() int { return s.decays }

// #endregion plateau-scheduler
