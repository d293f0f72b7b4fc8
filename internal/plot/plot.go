// Package plot renders training loss curves.
package plot

import (
	"fmt"
	"image/color"

	"github.com/danielpatrickdp/baler/go-codec/internal/train"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// #region loss-curves
var (
	trainColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	valColor   = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// LossCurves builds a plot of training and validation loss per epoch.
// With logY set the losses are drawn on a log10 axis.
func LossCurves(log train.LossLog, logY bool) (*plot.Plot, error) {
	if len(log) == 0 {
		return nil, fmt.Errorf("loss log is empty")
	}
	trainPts := make(plotter.XYs, len(log))
	valPts := make(plotter.XYs, len(log))
	for i, e := range log {
		trainPts[i] = plotter.XY{X: float64(e.Epoch), Y: e.TrainLoss}
		valPts[i] = plotter.XY{X: float64(e.Epoch), Y: e.ValLoss}
	}

	p := plot.New()
	p.Title.Text = "Loss"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Loss"
	if logY {
		for _, e := range log {
			if e.TrainLoss <= 0 || e.ValLoss <= 0 {
				return nil, fmt.Errorf("epoch %d has a non-positive loss, cannot use a log axis", e.Epoch)
			}
		}
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Add(plotter.NewGrid())

	for _, s := range []struct {
		name string
		pts  plotter.XYs
		c    color.Color
	}{{"train", trainPts, trainColor}, {"validation", valPts, valColor}} {
		l, err := plotter.NewLine(s.pts)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", s.name, err)
		}
		l.LineStyle.Width = vg.Points(1.5)
		l.LineStyle.Color = s.c
		p.Add(l)
		p.Legend.Add(s.name, l)
	}
	p.Legend.Top = true
	return p, nil
}

// SaveLossCurves renders the loss log to path. The image format follows the
// file extension (.png, .svg, .pdf).
func SaveLossCurves(log train.LossLog, path string, logY bool) error {
	p, err := LossCurves(log, logY)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// #endregion loss-curves
