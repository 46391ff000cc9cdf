package optim

import (
	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

var (
	// ErrGradCount is returned when explicit gradients and parameters differ
	// in number.
	ErrGradCount = errors.New("gradient count does not match parameter count")
	// ErrNotParameter is returned for parameters that are nil or produced by
	// an operation instead of being leaf tensors.
	ErrNotParameter = errors.New("params must contain leaf tensors only")
)

// LossOrGrads is either a scalar loss to differentiate or a list of
// precomputed gradients, one per parameter.
type LossOrGrads interface {
	gradients(params []*tensor.Tensor) ([]*tensor.Tensor, error)
}

type lossExpr struct {
	loss *tensor.Tensor
}

// Loss wraps a scalar loss whose gradients are computed on demand.
func Loss(loss *tensor.Tensor) LossOrGrads {
	return lossExpr{loss: loss}
}

func (l lossExpr) gradients(params []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if l.loss == nil {
		return nil, errors.New("loss is nil")
	}
	if l.loss.Numel() != 1 {
		return nil, errors.Errorf("loss must be a scalar, got shape %v", l.loss.Shape())
	}
	grads, err := tensor.Gradients(l.loss, params)
	if err != nil {
		return nil, errors.Wrap(err, "compute gradients")
	}
	return grads, nil
}

type gradList []*tensor.Tensor

// Grads wraps gradients that were computed elsewhere.
func Grads(grads ...*tensor.Tensor) LossOrGrads {
	return gradList(append([]*tensor.Tensor(nil), grads...))
}

func (g gradList) gradients(params []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(g) != len(params) {
		return nil, errors.Wrapf(ErrGradCount, "got %d gradient expressions for %d parameters", len(g), len(params))
	}
	for i, grad := range g {
		if grad == nil {
			return nil, errors.Errorf("gradient %d is nil", i)
		}
	}
	return g, nil
}

// GetOrComputeGrads returns one gradient per parameter, either as given or by
// differentiating the loss.
func GetOrComputeGrads(lossOrGrads LossOrGrads, params []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if lossOrGrads == nil {
		return nil, errors.New("loss or gradients required")
	}
	for i, p := range params {
		if p == nil || !p.IsLeaf() {
			return nil, errors.Wrapf(ErrNotParameter, "parameter %d", i)
		}
	}
	return lossOrGrads.gradients(params)
}
