package model

import "math"

const leakySlope = 0.01

// #region activation
func (a Activation) apply(v float64) float64 {
	switch a {
	case ActLeakyReLU:
		if v > 0 {
			return v
		}
		return leakySlope * v
	case ActTanh:
		return math.Tanh(v)
	default:
		return v
	}
}

// derivative is evaluated at the pre-activation value.
func (a Activation) derivative(pre float64) float64 {
	switch a {
	case ActLeakyReLU:
		if pre > 0 {
			return 1
		}
		return leakySlope
	case ActTanh:
		t := math.Tanh(pre)
		return 1 - t*t
	default:
		return 1
	}
}

// #endregion activation
