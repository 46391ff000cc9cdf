package optim

import (
	"math"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

// ClipGradNorm rescales the accumulated gradients of params so that their
// joint normType-norm is at most maxNorm. It returns the norm before clipping.
func ClipGradNorm(params []*tensor.Tensor, maxNorm float64, normType float64) float64 {
	if maxNorm <= 0 {
		return 0
	}
	if normType <= 0 {
		normType = 2
	}
	total := 0.0
	for _, p := range params {
		total += p.GradPowSum(normType)
	}
	norm := math.Pow(total, 1.0/normType)
	if norm > maxNorm {
		scale := maxNorm / norm
		for _, p := range params {
			p.ScaleGrad(scale)
		}
	}
	return norm
}

func ClipGradValue(params []*tensor.Tensor, clipValue float64) {
	if clipValue <= 0 {
		return
	}
	for _, p := range params {
		p.ClipGradValue(clipValue)
	}
}
