package tensor

import "math"

func Relu(a *Tensor) *Tensor {
	out := mapUnary(a, func(v float64) float64 { return math.Max(v, 0) })
	attachUnaryGrad(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		step := mapUnary(a, func(v float64) float64 {
			if v > 0 {
				return 1
			}
			return 0
		})
		accumulate(grads, a, hadamard(grad, step))
	})
	return out
}

func Sigmoid(a *Tensor) *Tensor {
	out := mapUnary(a, func(v float64) float64 { return 1 / (1 + math.Exp(-v)) })
	attachUnaryGrad(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		local := mapUnary(out, func(s float64) float64 { return s * (1 - s) })
		accumulate(grads, a, hadamard(grad, local))
	})
	return out
}

func Tanh(a *Tensor) *Tensor {
	out := mapUnary(a, math.Tanh)
	attachUnaryGrad(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		local := mapUnary(out, func(t float64) float64 { return 1 - t*t })
		accumulate(grads, a, hadamard(grad, local))
	})
	return out
}
