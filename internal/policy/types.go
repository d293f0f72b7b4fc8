package policy

// #region stopping-config
// StoppingConfig holds the early-stopping thresholds.
type StoppingConfig struct {
	Patience int     // non-improving epochs tolerated before stopping
	MinDelta float64 // improvement must exceed this to reset the counter
}

// #endregion stopping-config

// #region rate-config
// RateConfig holds the learning-rate-on-plateau parameters.
type RateConfig struct {
	Patience int     // non-improving epochs before a decay
	MinDelta float64 // improvement must exceed this to reset the counter
	Factor   float64 // multiplicative decay (default 0.5)
	MinLR    float64 // floor for the decayed rate (default 1e-6)
}

// DefaultRateConfig returns the plateau schedule used when only a patience is given.
func DefaultRateConfig(patience int) RateConfig {
	return RateConfig{
		Patience: patience,
		MinDelta: 0,
		Factor:   0.5,
		MinLR:    1e-6,
	}
}

// #endregion rate-config

// #region decision
// Status is the early-stopping state.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// RateDecision records what the scheduler did for one observation.
type RateDecision struct {
	LearningRate float64
	Decayed      bool
	Counter      int
}

// #endregion decision
