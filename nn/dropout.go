package nn

import (
	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

// ErrInvalidProbability is returned for drop probabilities outside [0, 1).
var ErrInvalidProbability = errors.New("dropout probability must be in [0, 1)")

// DropoutLayer zeroes activations at random while training. The mask can be
// drawn by the layer itself or supplied from outside, which lets concurrent
// workers either share one mask or each draw their own.
type DropoutLayer struct {
	inputShape    []int
	p             float64
	rescale       bool
	sharedAxes    []int
	mask          MaskSource
	srng          *tensor.RandomStream
	deterministic bool
}

type DropoutOption func(*DropoutLayer)

// WithP sets the probability of dropping a unit. Defaults to 0.5.
func WithP(p float64) DropoutOption {
	return func(d *DropoutLayer) { d.p = p }
}

// WithRescale controls whether retained units are divided by 1-p. Defaults to
// true.
func WithRescale(rescale bool) DropoutOption {
	return func(d *DropoutLayer) { d.rescale = rescale }
}

// WithSharedAxes makes the layer draw one value per slice along the given
// axes. Negative axes count from the end.
func WithSharedAxes(axes ...int) DropoutOption {
	return func(d *DropoutLayer) { d.sharedAxes = append([]int(nil), axes...) }
}

// WithMask fixes the mask. It must be broadcastable to the input. A nil mask
// leaves the layer drawing its own.
func WithMask(mask *tensor.Tensor) DropoutOption {
	return func(d *DropoutLayer) {
		if mask == nil {
			d.mask = nil
			return
		}
		d.mask = NewStaticMask(mask)
	}
}

// WithMaskSource takes the mask from src on every training pass.
func WithMaskSource(src MaskSource) DropoutOption {
	return func(d *DropoutLayer) { d.mask = src }
}

// WithSeed seeds the layer's own random stream.
func WithSeed(seed uint64) DropoutOption {
	return func(d *DropoutLayer) { d.srng = tensor.NewRandomStream(seed) }
}

func NewDropoutLayer(incoming Shaped, opts ...DropoutOption) (*DropoutLayer, error) {
	if incoming == nil {
		return nil, errors.New("dropout layer requires an incoming layer")
	}
	d := &DropoutLayer{
		inputShape: incoming.OutputShape(),
		p:          0.5,
		rescale:    true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.p < 0 || d.p >= 1 {
		return nil, errors.Wrapf(ErrInvalidProbability, "p=%v", d.p)
	}
	if len(d.inputShape) > 0 {
		if _, err := tensor.SharedMaskShape(d.inputShape, d.sharedAxes); err != nil {
			return nil, err
		}
	}
	if d.srng == nil {
		d.srng = tensor.DefaultStream().Fork()
	}
	return d, nil
}

func (d *DropoutLayer) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return d.OutputFor(input, d.deterministic)
}

// OutputFor applies dropout to input. With deterministic set, or p == 0, the
// input itself is returned.
func (d *DropoutLayer) OutputFor(input *tensor.Tensor, deterministic bool) (*tensor.Tensor, error) {
	if deterministic || d.p == 0 {
		return input, nil
	}
	retain := 1 - d.p
	x := input
	if d.rescale {
		x = tensor.DivScalar(input, retain)
	}

	if d.mask != nil {
		mask, err := d.mask.Mask(input.Shape())
		if err != nil {
			return nil, errors.Wrap(err, "dropout mask")
		}
		out, err := tensor.MulBroadcast(x, mask)
		if err != nil {
			return nil, errors.Wrap(err, "dropout")
		}
		return out, nil
	}

	// the declared shape wins when every dimension is known
	maskShape := d.inputShape
	if !knownShape(maskShape) {
		maskShape = input.Shape()
	}
	mask, err := d.srng.DropoutMask(d.p, maskShape, d.sharedAxes...)
	if err != nil {
		return nil, errors.Wrap(err, "dropout")
	}
	out, err := tensor.MulBroadcast(x, mask)
	if err != nil {
		return nil, errors.Wrap(err, "dropout")
	}
	return out, nil
}

// SetMask replaces the mask source. A nil source makes the layer draw its own
// masks again.
func (d *DropoutLayer) SetMask(src MaskSource) {
	d.mask = src
}

func (d *DropoutLayer) MaskSource() MaskSource {
	return d.mask
}

func (d *DropoutLayer) P() float64 {
	return d.p
}

func (d *DropoutLayer) Rescale() bool {
	return d.rescale
}

func (d *DropoutLayer) SharedAxes() []int {
	return append([]int(nil), d.sharedAxes...)
}

func (d *DropoutLayer) OutputShape() []int {
	return append([]int(nil), d.inputShape...)
}

func (d *DropoutLayer) Parameters() []*tensor.Tensor {
	return nil
}

func (d *DropoutLayer) ZeroGrad() {}

func (d *DropoutLayer) Train() {
	d.deterministic = false
}

func (d *DropoutLayer) Eval() {
	d.deterministic = true
}
