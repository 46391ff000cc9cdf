package nn

import (
	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

type Sequential struct {
	modules []Module
}

func NewSequential(mods ...Module) *Sequential {
	copyMods := make([]Module, len(mods))
	copy(copyMods, mods)
	return &Sequential{modules: copyMods}
}

func (s *Sequential) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := input
	for idx, m := range s.modules {
		out, err = m.Forward(out)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", idx)
		}
	}
	return out, nil
}

func (s *Sequential) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

func (s *Sequential) ZeroGrad() {
	for _, m := range s.modules {
		m.ZeroGrad()
	}
}

func (s *Sequential) Modules() []Module {
	return append([]Module(nil), s.modules...)
}

// OutputShape reports the shape declared by the last Shaped module; layers
// without a declared shape are assumed to preserve it. It returns nil when no
// module declares a shape.
func (s *Sequential) OutputShape() []int {
	for i := len(s.modules) - 1; i >= 0; i-- {
		if sh, ok := s.modules[i].(Shaped); ok {
			return sh.OutputShape()
		}
	}
	return nil
}

func (s *Sequential) Train() {
	SetTraining(true, s.modules...)
}

func (s *Sequential) Eval() {
	SetTraining(false, s.modules...)
}
