package nn

import (
	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

// Input is the entry point of a layer stack. It passes data through after
// checking it against the declared shape.
type Input struct {
	shape []int
}

func NewInput(shape ...int) *Input {
	return &Input{shape: append([]int(nil), shape...)}
}

func (in *Input) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	got := input.Shape()
	if len(got) != len(in.shape) {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "input rank %d, declared %v", len(got), in.shape)
	}
	for i, dim := range in.shape {
		if dim >= 0 && dim != got[i] {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch, "input shape %v, declared %v", got, in.shape)
		}
	}
	return input, nil
}

func (in *Input) OutputShape() []int {
	return append([]int(nil), in.shape...)
}

func (in *Input) Parameters() []*tensor.Tensor { return nil }

func (in *Input) ZeroGrad() {}
