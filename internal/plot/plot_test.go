package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/baler/go-codec/internal/train"
	"github.com/stretchr/testify/require"
)

func sampleLog() train.LossLog {
	return train.LossLog{
		{Epoch: 1, TrainLoss: 0.5, ValLoss: 0.6, LR: 0.001},
		{Epoch: 2, TrainLoss: 0.1, ValLoss: 0.2, LR: 0.001},
		{Epoch: 3, TrainLoss: 0.05, ValLoss: 0.08, LR: 0.0005},
	}
}

func TestSaveLossCurvesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loss.png")
	require.NoError(t, SaveLossCurves(sampleLog(), path, true))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(b), 8)
	require.Equal(t, "\x89PNG", string(b[:4]))
}

func TestLossCurvesRejects(t *testing.T) {
	_, err := LossCurves(nil, false)
	require.Error(t, err)

	log := sampleLog()
	log[1].ValLoss = 0
	_, err = LossCurves(log, true)
	require.Error(t, err)

	p, err := LossCurves(log, false)
	require.NoError(t, err)
	require.Equal(t, "Epoch", p.X.Label.Text)
}
