package tensor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/internal/parallel"
)

func Add(a, b *Tensor) (*Tensor, error) {
	out, err := zipWith(a, b, func(x, y float64) float64 { return x + y })
	if err != nil {
		return nil, errors.Wrap(err, "Add")
	}
	attachBinaryGrad(out, a, b, func(grad *Tensor, grads map[*Tensor]*Tensor, left, right *Tensor) {
		if left.requiresGrad {
			accumulate(grads, left, grad)
		}
		if right.requiresGrad {
			accumulate(grads, right, grad)
		}
	})
	return out, nil
}

func Sub(a, b *Tensor) (*Tensor, error) {
	out, err := zipWith(a, b, func(x, y float64) float64 { return x - y })
	if err != nil {
		return nil, errors.Wrap(err, "Sub")
	}
	attachBinaryGrad(out, a, b, func(grad *Tensor, grads map[*Tensor]*Tensor, left, right *Tensor) {
		if left.requiresGrad {
			accumulate(grads, left, grad)
		}
		if right.requiresGrad {
			accumulate(grads, right, mapUnary(grad, func(v float64) float64 { return -v }))
		}
	})
	return out, nil
}

func Mul(a, b *Tensor) (*Tensor, error) {
	out, err := zipWith(a, b, func(x, y float64) float64 { return x * y })
	if err != nil {
		return nil, errors.Wrap(err, "Mul")
	}
	attachBinaryGrad(out, a, b, func(grad *Tensor, grads map[*Tensor]*Tensor, left, right *Tensor) {
		if left.requiresGrad {
			accumulate(grads, left, hadamard(grad, right))
		}
		if right.requiresGrad {
			accumulate(grads, right, hadamard(grad, left))
		}
	})
	return out, nil
}

func Div(a, b *Tensor) (*Tensor, error) {
	out, err := zipWith(a, b, func(x, y float64) float64 { return x / y })
	if err != nil {
		return nil, errors.Wrap(err, "Div")
	}
	attachBinaryGrad(out, a, b, func(grad *Tensor, grads map[*Tensor]*Tensor, left, right *Tensor) {
		if left.requiresGrad {
			accumulate(grads, left, hadamard(grad, mapUnary(right, func(v float64) float64 { return 1 / v })))
		}
		if right.requiresGrad {
			g := hadamard(grad, left)
			parallel.For(len(g.data), func(start, end int) {
				for i := start; i < end; i++ {
					r := right.data[i]
					g.data[i] = -g.data[i] / (r * r)
				}
			})
			accumulate(grads, right, g)
		}
	})
	return out, nil
}

func Pow(a *Tensor, value float64) *Tensor {
	out := mapUnary(a, func(v float64) float64 { return math.Pow(v, value) })
	attachUnaryGrad(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		local := mapUnary(a, func(v float64) float64 { return value * math.Pow(v, value-1) })
		accumulate(grads, a, hadamard(grad, local))
	})
	return out
}

func Sum(a *Tensor) *Tensor {
	val := 0.0
	for _, v := range a.data {
		val += v
	}
	out := Scalar(val)
	attachUnaryGrad(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		accumulate(grads, a, Full(grad.data[0], a.shape...))
	})
	return out
}

func Mean(a *Tensor) *Tensor {
	scale := 1.0 / float64(a.Numel())
	val := 0.0
	for _, v := range a.data {
		val += v
	}
	out := Scalar(val * scale)
	attachUnaryGrad(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		accumulate(grads, a, Full(grad.data[0]*scale, a.shape...))
	})
	return out
}

// zipWith applies fn element-wise to two tensors of identical shape.
func zipWith(a, b *Tensor, fn func(x, y float64) float64) (*Tensor, error) {
	if err := ensureSameShape(a, b); err != nil {
		return nil, err
	}
	out := Zeros(a.shape...)
	parallel.For(len(out.data), func(start, end int) {
		for i := start; i < end; i++ {
			out.data[i] = fn(a.data[i], b.data[i])
		}
	})
	return out, nil
}

// mapUnary returns a new tensor, without gradient tracking, holding fn of
// every element of a.
func mapUnary(a *Tensor, fn func(v float64) float64) *Tensor {
	out := Zeros(a.shape...)
	parallel.For(len(out.data), func(start, end int) {
		for i := start; i < end; i++ {
			out.data[i] = fn(a.data[i])
		}
	})
	return out
}

func hadamard(a, b *Tensor) *Tensor {
	out, err := zipWith(a, b, func(x, y float64) float64 { return x * y })
	if err != nil {
		panic(err)
	}
	return out
}

func attachUnaryGrad(out, a *Tensor, backward func(grad *Tensor, grads map[*Tensor]*Tensor)) {
	if !a.requiresGrad {
		return
	}
	out.requiresGrad = true
	out.parents = []*Tensor{a}
	out.node = &node{backward: backward}
}

func attachBinaryGrad(out, a, b *Tensor, backward func(grad *Tensor, grads map[*Tensor]*Tensor, left, right *Tensor)) {
	if !(a.requiresGrad || b.requiresGrad) {
		return
	}
	out.requiresGrad = true
	parents := make([]*Tensor, 0, 2)
	if a.requiresGrad {
		parents = append(parents, a)
	}
	if b.requiresGrad {
		parents = append(parents, b)
	}
	out.parents = parents
	out.node = &node{
		backward: func(grad *Tensor, grads map[*Tensor]*Tensor) {
			backward(grad, grads, a, b)
		},
	}
}

func ensureSameShape(a, b *Tensor) error {
	if !SameShape(a.shape, b.shape) {
		return errors.Wrapf(ErrShapeMismatch, "%v vs %v", a.shape, b.shape)
	}
	return nil
}
