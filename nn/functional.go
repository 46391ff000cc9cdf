package nn

import "github.com/fumitoshi0524/hogwildnet/tensor"

// Functional wraps a parameter-free, shape-preserving function as a Module.
type Functional struct {
	fn func(*tensor.Tensor) (*tensor.Tensor, error)
}

func NewFunctional(fn func(*tensor.Tensor) (*tensor.Tensor, error)) *Functional {
	return &Functional{fn: fn}
}

func (f *Functional) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return f.fn(input)
}

func (f *Functional) Parameters() []*tensor.Tensor {
	return nil
}

func (f *Functional) ZeroGrad() {}

func unary(op func(*tensor.Tensor) *tensor.Tensor) Module {
	return NewFunctional(func(x *tensor.Tensor) (*tensor.Tensor, error) {
		return op(x), nil
	})
}

func Relu() Module {
	return unary(tensor.Relu)
}

func Sigmoid() Module {
	return unary(tensor.Sigmoid)
}

func Tanh() Module {
	return unary(tensor.Tanh)
}
