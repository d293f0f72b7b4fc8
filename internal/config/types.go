package config

import (
	"log/slog"
	"time"

	"github.com/danielpatrickdp/baler/go-codec/internal/device"
	"github.com/danielpatrickdp/baler/go-codec/internal/metrics"
)

// #region training
// Training is the immutable training configuration of a project. It is
// passed by value and never modified by the pipeline; values derived during
// a run live in RunContext.
type Training struct {
	InputPath        string  `yaml:"input_path" json:"input_path" validate:"required"`
	CompressionRatio float64 `yaml:"compression_ratio" json:"compression_ratio" validate:"gt=0"`
	Epochs           int     `yaml:"epochs" json:"epochs" validate:"gte=1"`
	EarlyStopping    bool    `yaml:"early_stopping" json:"early_stopping"`
	LRScheduler      bool    `yaml:"lr_scheduler" json:"lr_scheduler"`
	Patience         int     `yaml:"patience" json:"patience" validate:"gte=0"`
	LRPatience       int     `yaml:"lr_patience" json:"lr_patience" validate:"gte=-1"`
	MinDelta         float64 `yaml:"min_delta" json:"min_delta" validate:"gte=0"`
	ModelName        string  `yaml:"model_name" json:"model_name" validate:"required,topology"`
	CustomNorm       bool    `yaml:"custom_norm" json:"custom_norm"`
	L1               bool    `yaml:"l1" json:"l1"`
	RegParam         float64 `yaml:"reg_param" json:"reg_param" validate:"gte=0"`
	RHO              float64 `yaml:"RHO" json:"RHO" validate:"gt=0,lt=1"`
	LR               float64 `yaml:"lr" json:"lr" validate:"gt=0"`
	BatchSize        int     `yaml:"batch_size" json:"batch_size" validate:"gte=1"`
	SaveAsRoot       bool    `yaml:"save_as_root" json:"save_as_root"`
	TestSize         float64 `yaml:"test_size" json:"test_size" validate:"gt=0,lt=1"`
	Seed             int64   `yaml:"seed" json:"seed"`
	Device           string  `yaml:"device" json:"device" validate:"oneof=auto cpu cuda"`
}

// UsePatience as lr_patience makes the rate policy share the stopping patience.
const UsePatience = -1

// #endregion training

// #region run-context
// RunContext carries the per-invocation state derived while a mode runs.
// It is created once per invocation and owned by that invocation.
type RunContext struct {
	RunID     string
	Mode      string
	Columns   []string
	NFeatures int
	ZDim      int
	VersionID string
	Device    device.Device
	Seed      int64
	Logger    *slog.Logger
	Metrics   *metrics.Set
	Started   time.Time
}

// #endregion run-context
