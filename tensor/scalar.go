package tensor

func AddScalar(a *Tensor, value float64) *Tensor {
	out := mapUnary(a, func(v float64) float64 { return v + value })
	attachUnaryGrad(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		accumulate(grads, a, grad)
	})
	return out
}

func MulScalar(a *Tensor, value float64) *Tensor {
	out := mapUnary(a, func(v float64) float64 { return v * value })
	attachUnaryGrad(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		scaled := grad.Clone()
		scaled.Scale(value)
		accumulate(grads, a, scaled)
	})
	return out
}

// DivScalar divides every element by value. Division by zero follows IEEE
// semantics and is not reported.
func DivScalar(a *Tensor, value float64) *Tensor {
	out := mapUnary(a, func(v float64) float64 { return v / value })
	attachUnaryGrad(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		scaled := grad.Clone()
		scaled.Scale(1 / value)
		accumulate(grads, a, scaled)
	})
	return out
}
