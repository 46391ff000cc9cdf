package optim

import "github.com/fumitoshi0524/hogwildnet/tensor"

// Constraint projects a parameter back onto an allowed set after an update.
type Constraint interface {
	Apply(param *tensor.Tensor) error
}

type MaxNormConstraint struct {
	maxNorm float64
	norm    float64
}

func NewMaxNormConstraint(maxNorm, norm float64) *MaxNormConstraint {
	if norm <= 0 {
		norm = 2
	}
	return &MaxNormConstraint{maxNorm: maxNorm, norm: norm}
}

func (c *MaxNormConstraint) Apply(param *tensor.Tensor) error {
	if param == nil || c.maxNorm <= 0 {
		return nil
	}
	norm := param.Norm(c.norm)
	if norm <= c.maxNorm {
		return nil
	}
	param.Scale(c.maxNorm / (norm + 1e-12))
	return nil
}
