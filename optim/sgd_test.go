package optim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

func param(values ...float64) *tensor.Tensor {
	p := tensor.MustNew(values, len(values))
	p.SetRequiresGrad(true)
	return p
}

func TestSGDFromExplicitGrads(t *testing.T) {
	a := param(1, 2)
	b := param(-3)
	ga := tensor.MustNew([]float64{0.5, -1}, 2)
	gb := tensor.MustNew([]float64{2}, 1)

	updates, err := SGD(Grads(ga, gb), []*tensor.Tensor{a, b}, 0.1)
	require.NoError(t, err)
	require.Equal(t, 2, updates.Len())
	assert.Equal(t, []*tensor.Tensor{a, b}, updates.Params())

	ua, ok := updates.Get(a)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.95, 2.1}, ua.Data(), 1e-12)
	ub, ok := updates.Get(b)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{-3.2}, ub.Data(), 1e-12)
	assert.False(t, ua.RequiresGrad())

	// nothing moves until the updates are applied
	assert.Equal(t, []float64{1, 2}, a.Data())
	require.NoError(t, updates.Apply())
	assert.InDeltaSlice(t, []float64{0.95, 2.1}, a.Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{-3.2}, b.Data(), 1e-12)
}

func TestSGDFromLoss(t *testing.T) {
	w := param(2, -1)
	x := tensor.MustNew([]float64{3, 4}, 2)
	prod, err := tensor.Mul(w, x)
	require.NoError(t, err)
	loss := tensor.Sum(prod)

	updates, err := SGD(Loss(loss), []*tensor.Tensor{w}, 0.5)
	require.NoError(t, err)
	u, ok := updates.Get(w)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{2 - 1.5, -1 - 2}, u.Data(), 1e-12)
	assert.Nil(t, w.Grad())
}

func TestSGDPreservesParameterOrder(t *testing.T) {
	params := make([]*tensor.Tensor, 6)
	grads := make([]*tensor.Tensor, 6)
	for i := range params {
		params[i] = param(float64(i))
		grads[i] = tensor.Scalar(1)
	}
	updates, err := SGD(Grads(grads...), params, 1)
	require.NoError(t, err)
	assert.Equal(t, params, updates.Params())

	i := 0
	updates.Range(func(p, v *tensor.Tensor) bool {
		assert.Same(t, params[i], p)
		assert.Equal(t, []float64{float64(i) - 1}, v.Data())
		i++
		return i < 3
	})
	assert.Equal(t, 3, i)
}

func TestSGDDuplicateParamKeepsFirstPosition(t *testing.T) {
	a := param(1)
	b := param(1)
	updates, err := SGD(Grads(tensor.Scalar(1), tensor.Scalar(0), tensor.Scalar(2)), []*tensor.Tensor{a, b, a}, 1)
	require.NoError(t, err)
	assert.Equal(t, []*tensor.Tensor{a, b}, updates.Params())
	v, _ := updates.Get(a)
	assert.Equal(t, []float64{-1}, v.Data())
}

func TestSGDErrors(t *testing.T) {
	p := param(1, 2)

	_, err := SGD(Grads(tensor.Zeros(2), tensor.Zeros(2)), []*tensor.Tensor{p}, 0.1)
	assert.ErrorIs(t, err, ErrGradCount)
	assert.Contains(t, err.Error(), "got 2 gradient expressions for 1 parameters")

	_, err = SGD(Grads(tensor.Zeros(3)), []*tensor.Tensor{p}, 0.1)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = SGD(Loss(p), []*tensor.Tensor{p}, 0.1)
	assert.Error(t, err, "non-scalar loss")

	derived := tensor.MulScalar(p, 2)
	_, err = SGD(Grads(tensor.Zeros(2)), []*tensor.Tensor{derived}, 0.1)
	assert.ErrorIs(t, err, ErrNotParameter)

	_, err = SGD(Grads(tensor.Zeros(1)), []*tensor.Tensor{nil}, 0.1)
	assert.ErrorIs(t, err, ErrNotParameter)

	_, err = SGD(nil, []*tensor.Tensor{p}, 0.1)
	assert.Error(t, err)

	other := param(5)
	_, err = SGD(Loss(tensor.Sum(p)), []*tensor.Tensor{p, other}, 0.1)
	assert.ErrorIs(t, err, tensor.ErrDisconnected)

	_, err = SGD(Grads(nil), []*tensor.Tensor{p}, 0.1)
	assert.Error(t, err)
}

func TestSGDOptimizerStepAndMomentum(t *testing.T) {
	p := param(1, -2)
	require.NoError(t, tensor.Sum(p).Backward())
	opt := NewSGDOptimizer([]*tensor.Tensor{p}, 0.1, 0)
	require.NoError(t, opt.Step())
	assert.InDeltaSlice(t, []float64{0.9, -2.1}, p.Data(), 1e-9)

	// two momentum updates with constant gradients of ones
	pm := param(1, -2)
	momentum := NewSGDOptimizer([]*tensor.Tensor{pm}, 0.1, 0.5)
	for i := 0; i < 2; i++ {
		momentum.ZeroGrad()
		require.NoError(t, tensor.Sum(pm).Backward())
		require.NoError(t, momentum.Step())
	}
	assert.InDeltaSlice(t, []float64{0.75, -2.25}, pm.Data(), 1e-9)
}

func TestSGDOptimizerNesterovAndDecay(t *testing.T) {
	p := param(1)
	opt := NewSGDOptimizerWithConfig([]*tensor.Tensor{p}, SGDConfig{LR: 0.1, Momentum: 0.5, Nesterov: true, WeightDecay: 1})
	assert.True(t, opt.Nesterov())
	assert.Equal(t, 1.0, opt.WeightDecay())
	require.NoError(t, tensor.Sum(p).Backward())
	require.NoError(t, opt.Step())
	// grad 1 + decay 1 = 2; v = 2; nesterov step = 2 + 0.5*2 = 3
	assert.InDeltaSlice(t, []float64{0.7}, p.Data(), 1e-9)
}

func TestSGDOptimizerSkipsParamsWithoutGrad(t *testing.T) {
	a := param(1)
	b := param(5)
	require.NoError(t, tensor.Sum(a).Backward())
	opt := NewSGDOptimizer([]*tensor.Tensor{a, nil, b}, 1, 0)
	require.NoError(t, opt.Step())
	assert.Equal(t, []float64{0}, a.Data())
	assert.Equal(t, []float64{5}, b.Data())
}

func TestSGDOptimizerConvergesOnQuadratic(t *testing.T) {
	p := param(5)
	target := tensor.Full(3, 1)
	opt := NewSGDOptimizerWithConfig([]*tensor.Tensor{p}, SGDConfig{LR: 0.1, Momentum: 0.9, MaxGradNorm: 10, GradValueClip: 5})
	for i := 0; i < 300; i++ {
		opt.ZeroGrad()
		diff, err := tensor.Sub(p, target)
		require.NoError(t, err)
		require.NoError(t, tensor.Mean(tensor.Pow(diff, 2)).Backward())
		require.NoError(t, opt.Step())
	}
	assert.InDelta(t, 3, p.Data()[0], 1e-2)
}

func TestGradientClippingUtilities(t *testing.T) {
	p := param(3, 4)
	require.NoError(t, tensor.Sum(p).Backward())

	originalNorm := ClipGradNorm([]*tensor.Tensor{p}, 1.0, 2)
	assert.InDelta(t, math.Sqrt(2), originalNorm, 1e-6)
	assert.InDelta(t, 1.0, p.Grad().Norm(2), 1e-6)

	p.ZeroGrad()
	require.NoError(t, tensor.Sum(p).Backward())
	ClipGradValue([]*tensor.Tensor{p}, 0.5)
	for _, v := range p.Grad().Data() {
		assert.LessOrEqual(t, math.Abs(v), 0.5+1e-9)
	}
}

func TestMaxNormConstraint(t *testing.T) {
	p := tensor.MustNew([]float64{3, 4}, 2)
	require.NoError(t, NewMaxNormConstraint(1.0, 2).Apply(p))
	assert.LessOrEqual(t, p.Norm(2), 1.0+1e-6)

	opt := NewSGDOptimizer([]*tensor.Tensor{param(3, 4)}, 0, 0)
	opt.AddConstraint(NewMaxNormConstraint(1.0, 0))
	assert.Len(t, opt.Constraints(), 1)
}
