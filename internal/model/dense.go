// Package model defines the autoencoder capability used as the codec and the
// dense topologies that implement it.
package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/danielpatrickdp/baler/go-codec/internal/faults"
	"gonum.org/v1/gonum/mat"
)

// #region layer
type layer struct {
	in, out int
	w       *mat.Dense // in x out
	b       []float64
	act     Activation
	wOpt    *adam
	bOpt    *adam
}

// affine returns x*W + b.
func (l *layer) affine(x mat.Matrix) *mat.Dense {
	var z mat.Dense
	z.Mul(x, l.w)
	rows, _ := z.Dims()
	for i := 0; i < rows; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] += l.b[j]
		}
	}
	return &z
}

// #endregion layer

// #region dense
// Dense is a symmetric fully connected autoencoder. Hidden layers use the
// topology activation; the latent and output layers are linear.
type Dense struct {
	arch   Arch
	layers []*layer
	nEnc   int // number of encoder layers; layers[nEnc:] decode
	steps  int
}

func newDense(arch Arch, topo Topology, seed int64) *Dense {
	widths := []int{arch.NFeatures}
	widths = append(widths, topo.Hidden...)
	widths = append(widths, arch.ZDim)
	for i := len(topo.Hidden) - 1; i >= 0; i-- {
		widths = append(widths, topo.Hidden[i])
	}
	widths = append(widths, arch.NFeatures)

	rng := rand.New(rand.NewSource(seed))
	d := &Dense{arch: arch, nEnc: len(topo.Hidden) + 1}
	last := len(widths) - 2
	for i := 0; i <= last; i++ {
		in, out := widths[i], widths[i+1]
		act := topo.Activation
		if i == d.nEnc-1 || i == last {
			act = ActIdentity
		}
		bound := 1 / math.Sqrt(float64(in))
		wData := make([]float64, in*out)
		for k := range wData {
			wData[k] = (rng.Float64()*2 - 1) * bound
		}
		b := make([]float64, out)
		for k := range b {
			b[k] = (rng.Float64()*2 - 1) * bound
		}
		d.layers = append(d.layers, &layer{
			in:   in,
			out:  out,
			w:    mat.NewDense(in, out, wData),
			b:    b,
			act:  act,
			wOpt: newAdam(in * out),
			bOpt: newAdam(out),
		})
	}
	return d
}

// Arch returns the architecture fixed at construction.
func (d *Dense) Arch() Arch { return d.arch }

// ParameterCount returns the number of trainable scalars.
func (d *Dense) ParameterCount() int {
	n := 0
	for _, l := range d.layers {
		n += l.in*l.out + l.out
	}
	return n
}

// #endregion dense

// #region forward
type pass struct {
	pre  []*mat.Dense // pre-activation of each layer
	acts []*mat.Dense // acts[0] is the input, acts[k+1] the output of layer k
}

func (d *Dense) run(x *mat.Dense, from, to int) pass {
	p := pass{acts: []*mat.Dense{x}}
	cur := x
	for i := from; i < to; i++ {
		l := d.layers[i]
		z := l.affine(cur)
		a := z
		if l.act != ActIdentity {
			a = mat.NewDense(z.RawMatrix().Rows, z.RawMatrix().Cols, nil)
			act := l.act
			a.Apply(func(_, _ int, v float64) float64 { return act.apply(v) }, z)
		}
		p.pre = append(p.pre, z)
		p.acts = append(p.acts, a)
		cur = a
	}
	return p
}

func checkWidth(m *mat.Dense, want int, what string) error {
	if m == nil {
		return faults.Shape(faults.StageModel, "%s is nil", what)
	}
	_, c := m.Dims()
	if c != want {
		return faults.Shape(faults.StageModel, "%s has width %d, expected %d", what, c, want)
	}
	return nil
}

// Forward reconstructs x.
func (d *Dense) Forward(x *mat.Dense) (*mat.Dense, error) {
	if err := checkWidth(x, d.arch.NFeatures, "input"); err != nil {
		return nil, err
	}
	p := d.run(x, 0, len(d.layers))
	return p.acts[len(p.acts)-1], nil
}

// Encode maps x to the latent space.
func (d *Dense) Encode(x *mat.Dense) (*mat.Dense, error) {
	if err := checkWidth(x, d.arch.NFeatures, "input"); err != nil {
		return nil, err
	}
	p := d.run(x, 0, d.nEnc)
	return p.acts[len(p.acts)-1], nil
}

// Decode maps latent rows back to feature space.
func (d *Dense) Decode(z *mat.Dense) (*mat.Dense, error) {
	if err := checkWidth(z, d.arch.ZDim, "latent"); err != nil {
		return nil, err
	}
	p := d.run(z, d.nEnc, len(d.layers))
	return p.acts[len(p.acts)-1], nil
}

// #endregion forward

// #region loss
// objective is MSE(x, recon) plus the optional L1 penalty over every
// intermediate activation (latent included, reconstruction excluded).
func (d *Dense) objective(p pass, x *mat.Dense, reg Regularization) Loss {
	recon := p.acts[len(p.acts)-1]
	rows, cols := recon.Dims()
	var sse float64
	for i := 0; i < rows; i++ {
		o, t := recon.RawRowView(i), x.RawRowView(i)
		for j := range o {
			e := o[j] - t[j]
			sse += e * e
		}
	}
	loss := Loss{MSE: sse / float64(rows*cols)}

	if reg.L1 && reg.RegParam != 0 {
		var penalty float64
		for k := 1; k < len(p.acts)-1; k++ {
			a := p.acts[k]
			ar, ac := a.Dims()
			var s float64
			for i := 0; i < ar; i++ {
				for _, v := range a.RawRowView(i) {
					s += math.Abs(v)
				}
			}
			penalty += s / float64(ar*ac)
		}
		loss.Penalty = reg.RegParam * penalty
	}
	return loss
}

// Loss evaluates the objective without touching parameters.
func (d *Dense) Loss(x *mat.Dense, reg Regularization) (Loss, error) {
	if err := checkWidth(x, d.arch.NFeatures, "input"); err != nil {
		return Loss{}, err
	}
	return d.objective(d.run(x, 0, len(d.layers)), x, reg), nil
}

// #endregion loss

// #region backward
func (d *Dense) backward(p pass, x *mat.Dense, reg Regularization) ([]*mat.Dense, [][]float64) {
	n := len(d.layers)
	out := p.acts[n]
	rows, cols := out.Dims()
	delta := mat.NewDense(rows, cols, nil)
	scale := 2 / float64(rows*cols)
	for i := 0; i < rows; i++ {
		o, t, dr := out.RawRowView(i), x.RawRowView(i), delta.RawRowView(i)
		for j := range dr {
			dr[j] = scale * (o[j] - t[j])
		}
	}

	gw := make([]*mat.Dense, n)
	gb := make([][]float64, n)
	for i := n - 1; i >= 0; i-- {
		l := d.layers[i]
		if i < n-1 && reg.L1 && reg.RegParam != 0 {
			a := p.acts[i+1]
			ar, ac := a.Dims()
			k := reg.RegParam / float64(ar*ac)
			for r := 0; r < ar; r++ {
				av, dr := a.RawRowView(r), delta.RawRowView(r)
				for c := range dr {
					dr[c] += k * sign(av[c])
				}
			}
		}
		if l.act != ActIdentity {
			pre := p.pre[i]
			for r := 0; r < rows; r++ {
				pr, dr := pre.RawRowView(r), delta.RawRowView(r)
				for c := range dr {
					dr[c] *= l.act.derivative(pr[c])
				}
			}
		}

		var g mat.Dense
		g.Mul(p.acts[i].T(), delta)
		gw[i] = &g
		bias := make([]float64, l.out)
		for r := 0; r < rows; r++ {
			for c, v := range delta.RawRowView(r) {
				bias[c] += v
			}
		}
		gb[i] = bias

		if i > 0 {
			var next mat.Dense
			next.Mul(delta, l.w.T())
			delta = &next
		}
	}
	return gw, gb
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// TrainStep runs forward, backward and one Adam update.
func (d *Dense) TrainStep(x *mat.Dense, reg Regularization, lr float64) (Loss, error) {
	if err := checkWidth(x, d.arch.NFeatures, "input"); err != nil {
		return Loss{}, err
	}
	p := d.run(x, 0, len(d.layers))
	loss := d.objective(p, x, reg)
	if total := loss.Total(); math.IsNaN(total) || math.IsInf(total, 0) {
		return loss, nil
	}
	gw, gb := d.backward(p, x, reg)
	d.steps++
	for i, l := range d.layers {
		l.wOpt.step(l.w.RawMatrix().Data, gw[i].RawMatrix().Data, lr, d.steps)
		l.bOpt.step(l.b, gb[i], lr, d.steps)
	}
	return loss, nil
}

// #endregion backward

// #region weights
// Weights returns copies of every parameter block in layer order.
func (d *Dense) Weights() []Tensor {
	ws := make([]Tensor, 0, 2*len(d.layers))
	for i, l := range d.layers {
		ws = append(ws,
			Tensor{Name: fmt.Sprintf("layer%d.weight", i), Rows: l.in, Cols: l.out, Data: append([]float64(nil), l.w.RawMatrix().Data...)},
			Tensor{Name: fmt.Sprintf("layer%d.bias", i), Rows: 1, Cols: l.out, Data: append([]float64(nil), l.b...)},
		)
	}
	return ws
}

// SetWeights replaces every parameter block. The blocks must match this
// topology exactly in count and shape.
func (d *Dense) SetWeights(ws []Tensor) error {
	if len(ws) != 2*len(d.layers) {
		return faults.ArchitectureMismatch(faults.StageModel, "%s expects %d tensors, got %d", d.arch.Name, 2*len(d.layers), len(ws))
	}
	for i, l := range d.layers {
		w, b := ws[2*i], ws[2*i+1]
		if w.Rows != l.in || w.Cols != l.out || len(w.Data) != l.in*l.out {
			return faults.ArchitectureMismatch(faults.StageModel, "%s: tensor %q is %dx%d, expected %dx%d", d.arch.Name, w.Name, w.Rows, w.Cols, l.in, l.out)
		}
		if b.Rows != 1 || b.Cols != l.out || len(b.Data) != l.out {
			return faults.ArchitectureMismatch(faults.StageModel, "%s: tensor %q is %dx%d, expected 1x%d", d.arch.Name, b.Name, b.Rows, b.Cols, l.out)
		}
	}
	for i, l := range d.layers {
		l.w = mat.NewDense(l.in, l.out, append([]float64(nil), ws[2*i].Data...))
		l.b = append([]float64(nil), ws[2*i+1].Data...)
		l.wOpt = newAdam(l.in * l.out)
		l.bOpt = newAdam(l.out)
	}
	d.steps = 0
	return nil
}

// #endregion weights
