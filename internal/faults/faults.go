// Package faults defines the error taxonomy shared by every pipeline stage.
// Each error names the stage that raised it and unwraps to one of the kind
// sentinels, so callers can branch with errors.Is.
package faults

import (
	"errors"
	"fmt"
)

// #region kinds
var (
	ErrData                 = errors.New("data error")
	ErrConfigMismatch       = errors.New("config mismatch")
	ErrShape                = errors.New("shape error")
	ErrArchitectureMismatch = errors.New("architecture mismatch")
	ErrDivergence           = errors.New("divergence")
)

// #endregion kinds

// #region stages
// Stage names the pipeline step an error was raised in.
type Stage string

const (
	StageLoad       Stage = "load"
	StageNormalize  Stage = "normalize"
	StageSplit      Stage = "split"
	StageTrain      Stage = "train"
	StageModel      Stage = "model"
	StageCompress   Stage = "compress"
	StageDecompress Stage = "decompress"
	StageStore      Stage = "store"
)

// #endregion stages

// #region error
// Error is a taxonomy error bound to a stage.
type Error struct {
	Stage  Stage
	Kind   error
	Detail string
}

// Error renders "<stage>: <kind>: <detail>".
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Stage, e.Kind, e.Detail)
}

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

// New builds a staged error of the given kind.
func New(stage Stage, kind error, format string, args ...any) error {
	return &Error{Stage: stage, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Data builds a data error at stage.
func Data(stage Stage, format string, args ...any) error {
	return New(stage, ErrData, format, args...)
}

// ConfigMismatch builds a config mismatch at stage.
func ConfigMismatch(stage Stage, format string, args ...any) error {
	return New(stage, ErrConfigMismatch, format, args...)
}

// Shape builds a shape error at stage.
func Shape(stage Stage, format string, args ...any) error {
	return New(stage, ErrShape, format, args...)
}

// ArchitectureMismatch builds an architecture mismatch at stage.
func ArchitectureMismatch(stage Stage, format string, args ...any) error {
	return New(stage, ErrArchitectureMismatch, format, args...)
}

// Divergence builds a divergence error at stage.
func Divergence(stage Stage, format string, args ...any) error {
	return New(stage, ErrDivergence, format, args...)
}

// #endregion error

// #region helpers
// StageOf reports the stage of the first taxonomy error in err's chain.
func StageOf(err error) (Stage, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Stage, true
	}
	return "", false
}

// Restage returns err re-attributed to stage when it is a taxonomy error.
// Other errors pass through untouched.
func Restage(err error, stage Stage) error {
	var fe *Error
	if !errors.As(err, &fe) {
		return err
	}
	return &Error{Stage: stage, Kind: fe.Kind, Detail: fe.Detail}
}

// #endregion helpers
