package logging

import "time"

// #region run-entry
// RunEntry is a single row in the run_log table: one invocation of a
// pipeline mode and how it ended.
type RunEntry struct {
	RunID      string
	VersionID  string // model version produced or consumed; empty when none was reached
	Mode       string // "derive" | "compress" | "decompress" | "evaluate"
	ConfigJSON string
	Outcome    string // "ok" | "error"
	Stage      string // failing stage for taxonomy errors
	Detail     string
	Duration   time.Duration
	CreatedAt  time.Time
}

// #endregion run-entry

// #region outcomes
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// #endregion outcomes
