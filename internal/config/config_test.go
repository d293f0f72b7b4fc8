package config

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 2.0, cfg.CompressionRatio)
	require.Equal(t, "george_SAE", cfg.ModelName)
	require.Equal(t, 512, cfg.BatchSize)
	require.Equal(t, 0.15, cfg.TestSize)
}

func TestWriteDefaultAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefault(path, "data/sample.csv"))

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.InputPath = "data/sample.csv"
	require.Equal(t, want, cfg)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("input_path: x.csv\nepochs: 50\nmodel_name: linear_AE\nRHO: 0.1\nlr_patience: 3\n"))
	require.NoError(t, err)
	require.Equal(t, 50, cfg.Epochs)
	require.Equal(t, "linear_AE", cfg.ModelName)
	require.Equal(t, 0.1, cfg.RHO)
	require.Equal(t, 3, cfg.RatePatience())
	require.Equal(t, 100, cfg.Patience, "unset keys keep defaults")
}

func TestParseEmptyIsDefault(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"zero ratio":      "compression_ratio: 0\n",
		"zero epochs":     "epochs: 0\n",
		"unknown model":   "model_name: resnet\n",
		"test size":       "test_size: 1.0\n",
		"negative delta":  "min_delta: -1\n",
		"rho range":       "RHO: 1.5\n",
		"zero batch":      "batch_size: 0\n",
		"bad device":      "device: tpu\n",
		"unknown key":     "epoch: 3\n",
		"negative lr pat": "lr_patience: -2\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			require.Error(t, err)
		})
	}
}

func TestRatePatienceFallsBackToPatience(t *testing.T) {
	cfg := Default()
	cfg.Patience = 7
	require.Equal(t, 7, cfg.RatePatience())
	rc := cfg.RateConfig()
	require.Equal(t, 7, rc.Patience)
	require.Equal(t, 0.5, rc.Factor)
	require.Equal(t, 1e-6, rc.MinLR)

	cfg.LRPatience = 0
	require.Equal(t, 0, cfg.RatePatience(), "zero is a real patience, not unset")
}

func TestCopiesDoNotShareRatePatience(t *testing.T) {
	base, err := Parse([]byte("input_path: x.csv\nlr_patience: 4\n"))
	require.NoError(t, err)
	copied := base
	copied.LRPatience = 9
	require.Equal(t, 4, base.RatePatience())
	require.Equal(t, 9, copied.RatePatience())

	fallback, err := Parse([]byte("input_path: x.csv\npatience: 6\nlr_patience: -1\n"))
	require.NoError(t, err)
	require.Equal(t, 6, fallback.RatePatience())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestNewRunContext(t *testing.T) {
	cfg := Default()
	cfg.Device = "cuda"
	rc, err := NewRunContext("derive", cfg, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, rc.RunID)
	require.Equal(t, "derive", rc.Mode)
	require.True(t, rc.Device.Fallback)
	require.NotNil(t, rc.Logger)
	require.NotNil(t, rc.Metrics)

	other, err := NewRunContext("derive", cfg, nil, nil)
	require.NoError(t, err)
	require.NotEqual(t, rc.RunID, other.RunID)
}
