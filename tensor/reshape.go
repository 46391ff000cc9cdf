package tensor

import "github.com/pkg/errors"

// Reshape returns a view of t with a new shape. A single -1 dimension is
// inferred from the element count.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	if len(shape) == 0 {
		return nil, errors.New("reshape shape required")
	}
	shape = append([]int(nil), shape...)
	total := t.Numel()
	prod := 1
	infer := -1
	for i, dim := range shape {
		if dim == -1 {
			if infer != -1 {
				return nil, errors.New("multiple inferred dimensions")
			}
			infer = i
			continue
		}
		if dim <= 0 {
			return nil, errors.Errorf("invalid reshape dimension %d", dim)
		}
		prod *= dim
	}
	if infer != -1 {
		if total%prod != 0 {
			return nil, errors.Errorf("cannot infer dimension of %v from %d elements", shape, total)
		}
		shape[infer] = total / prod
		prod = total
	}
	if prod != total {
		return nil, errors.Wrapf(ErrShapeMismatch, "reshape %v to %v", t.shape, shape)
	}
	out := reshapeKeep(t, shape)
	attachUnaryGrad(out, t, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		accumulate(grads, t, reshapeKeep(grad.Clone(), t.shape))
	})
	return out, nil
}

// Flatten collapses all but the leading dimension.
func Flatten(a *Tensor) (*Tensor, error) {
	if len(a.shape) < 2 {
		return a.Reshape(a.Numel())
	}
	return a.Reshape(a.shape[0], -1)
}
