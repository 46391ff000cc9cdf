package nn

import (
	"math"

	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *tensor.Tensor
	bias        *tensor.Tensor
}

// NewLinear builds a fully connected layer with Glorot-scaled normal weights
// drawn from the default random stream.
func NewLinear(inFeatures, outFeatures int, withBias bool) *Linear {
	return NewLinearFromStream(tensor.DefaultStream(), inFeatures, outFeatures, withBias)
}

func NewLinearFromStream(stream *tensor.RandomStream, inFeatures, outFeatures int, withBias bool) *Linear {
	scale := math.Sqrt(2.0 / float64(inFeatures+outFeatures))
	w := stream.Normal(outFeatures, inFeatures)
	w.Scale(scale)
	w.SetRequiresGrad(true)
	var b *tensor.Tensor
	if withBias {
		b = stream.Normal(outFeatures)
		b.Scale(scale)
		b.SetRequiresGrad(true)
	}
	return &Linear{inFeatures: inFeatures, outFeatures: outFeatures, weight: w, bias: b}
}

func (l *Linear) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	shape := input.Shape()
	x := input
	var err error
	switch len(shape) {
	case 1:
		x, err = input.Reshape(1, shape[0])
	case 2:
	default:
		x, err = tensor.Flatten(input)
	}
	if err != nil {
		return nil, errors.Wrap(err, "linear input")
	}
	wt := l.weight.MustTranspose()
	output, err := tensor.MatMul(x, wt)
	if err != nil {
		return nil, errors.Wrapf(err, "linear %d->%d", l.inFeatures, l.outFeatures)
	}
	if l.bias != nil {
		output, err = tensor.AddBroadcast(output, l.bias)
		if err != nil {
			return nil, err
		}
	}
	return output, nil
}

func (l *Linear) Parameters() []*tensor.Tensor {
	params := []*tensor.Tensor{l.weight}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	return params
}

func (l *Linear) ZeroGrad() {
	for _, p := range l.Parameters() {
		p.ZeroGrad()
	}
}

func (l *Linear) OutputShape() []int {
	return []int{-1, l.outFeatures}
}

func (l *Linear) Weight() *tensor.Tensor {
	return l.weight
}

func (l *Linear) Bias() *tensor.Tensor {
	return l.bias
}
