package nn

import "github.com/fumitoshi0524/hogwildnet/tensor"

type Module interface {
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() []*tensor.Tensor
	ZeroGrad()
}

// Shaped is implemented by layers that declare the shape of their output.
// A dimension of -1 is only known at run time.
type Shaped interface {
	OutputShape() []int
}

// Trainable is implemented by layers whose Forward behaves differently while
// training and while evaluating.
type Trainable interface {
	Train()
	Eval()
}

func ZeroGradAll(mods ...Module) {
	for _, m := range mods {
		if m == nil {
			continue
		}
		m.ZeroGrad()
	}
}

// SetTraining switches every Trainable module in mods to training or
// evaluation mode. Sequential containers forward the switch to their children.
func SetTraining(training bool, mods ...Module) {
	for _, m := range mods {
		t, ok := m.(Trainable)
		if !ok {
			continue
		}
		if training {
			t.Train()
		} else {
			t.Eval()
		}
	}
}

func knownShape(shape []int) bool {
	if len(shape) == 0 {
		return false
	}
	for _, dim := range shape {
		if dim < 0 {
			return false
		}
	}
	return true
}
