package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/fumitoshi0524/hogwildnet/internal/parallel"
)

// GradPowSum returns sum(|g|^norm) over the accumulated gradient.
func (t *Tensor) GradPowSum(norm float64) float64 {
	if t == nil || t.grad == nil {
		return 0
	}
	return math.Pow(floats.Norm(t.grad.data, norm), norm)
}

func (t *Tensor) ScaleGrad(factor float64) {
	if t == nil || t.grad == nil {
		return
	}
	t.grad.Scale(factor)
}

func (t *Tensor) ClipGradValue(limit float64) {
	if t == nil || t.grad == nil || limit <= 0 {
		return
	}
	grad := t.grad
	parallel.For(len(grad.data), func(start, end int) {
		for i := start; i < end; i++ {
			grad.data[i] = math.Max(-limit, math.Min(limit, grad.data[i]))
		}
	})
}

// Norm returns the L-norm of the tensor's values.
func (t *Tensor) Norm(l float64) float64 {
	return floats.Norm(t.data, l)
}
