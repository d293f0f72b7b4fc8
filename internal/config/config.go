// Package config loads and validates the project training configuration and
// builds the per-run context.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/danielpatrickdp/baler/go-codec/internal/device"
	"github.com/danielpatrickdp/baler/go-codec/internal/logging"
	"github.com/danielpatrickdp/baler/go-codec/internal/metrics"
	"github.com/danielpatrickdp/baler/go-codec/internal/model"
	"github.com/danielpatrickdp/baler/go-codec/internal/policy"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// #region defaults
// Default returns the configuration written for a new project.
func Default() Training {
	return Training{
		InputPath:        "data/input.csv",
		CompressionRatio: 2.0,
		Epochs:           2,
		EarlyStopping:    true,
		LRScheduler:      false,
		Patience:         100,
		LRPatience:       UsePatience,
		MinDelta:         0,
		ModelName:        "george_SAE",
		CustomNorm:       false,
		L1:               true,
		RegParam:         0.001,
		RHO:              0.05,
		LR:               0.001,
		BatchSize:        512,
		SaveAsRoot:       true,
		TestSize:         0.15,
		Seed:             1,
		Device:           string(device.KindAuto),
	}
}

// #endregion defaults

// #region validation
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("topology", func(fl validator.FieldLevel) bool {
		_, ok := model.Lookup(fl.Field().String())
		return ok
	})
}

// Validate checks every field constraint.
func (c Training) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion validation

// #region load
// Load reads a YAML config. Keys missing from the file keep their default
// value; unknown keys are rejected.
func Load(path string) (Training, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Training{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes on top of Default and validates the result.
func Parse(data []byte) (Training, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Training{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Training{}, err
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path, pointing it at inputPath when given.
func WriteDefault(path, inputPath string) error {
	cfg := Default()
	if inputPath != "" {
		cfg.InputPath = inputPath
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// JSON renders the config for storage next to a model version.
func (c Training) JSON() string {
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}

// #endregion load

// #region derived
// RatePatience is lr_patience unless it is UsePatience, patience otherwise.
func (c Training) RatePatience() int {
	if c.LRPatience != UsePatience {
		return c.LRPatience
	}
	return c.Patience
}

// Regularization selects the loss terms from l1, reg_param and RHO.
func (c Training) Regularization() model.Regularization {
	return model.Regularization{L1: c.L1, RegParam: c.RegParam, RHO: c.RHO}
}

// StoppingConfig builds the early-stopping policy settings.
func (c Training) StoppingConfig() policy.StoppingConfig {
	return policy.StoppingConfig{Patience: c.Patience, MinDelta: c.MinDelta}
}

// RateConfig builds the plateau scheduler settings.
func (c Training) RateConfig() policy.RateConfig {
	rc := policy.DefaultRateConfig(c.RatePatience())
	rc.MinDelta = c.MinDelta
	return rc
}

// #endregion derived

// #region run-context
// NewRunContext resolves the device and stamps a fresh run id. A nil logger
// discards output; nil metrics register on a private registry.
func NewRunContext(mode string, cfg Training, logger *slog.Logger, m *metrics.Set) (*RunContext, error) {
	dev, err := device.Resolve(cfg.Device)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	rc := &RunContext{
		RunID:   uuid.New().String(),
		Mode:    mode,
		Device:  dev,
		Seed:    cfg.Seed,
		Started: time.Now(),
	}
	rc.Logger = logger.With("run_id", rc.RunID, "mode", mode)
	rc.Metrics = m
	if dev.Fallback {
		rc.Logger.Warn("requested device unavailable, using cpu", "requested", string(dev.Requested))
	}
	return rc, nil
}

// #endregion run-context
