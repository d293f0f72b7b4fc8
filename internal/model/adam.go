package model

import "math"

// #region adam
// adam keeps first and second moments for one flat parameter slice.
type adam struct {
	m, v []float64
}

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

func newAdam(n int) *adam {
	return &adam{m: make([]float64, n), v: make([]float64, n)}
}

// step updates params in place from grads at time step t (1-based).
func (a *adam) step(params, grads []float64, lr float64, t int) {
	bias1 := 1 - math.Pow(adamBeta1, float64(t))
	bias2 := 1 - math.Pow(adamBeta2, float64(t))
	for i, g := range grads {
		a.m[i] = adamBeta1*a.m[i] + (1-adamBeta1)*g
		a.v[i] = adamBeta2*a.v[i] + (1-adamBeta2)*g*g
		mHat := a.m[i] / bias1
		vHat := a.v[i] / bias2
		params[i] -= lr * mHat / (math.Sqrt(vHat) + adamEpsilon)
	}
}

// #endregion adam
