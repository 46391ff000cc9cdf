package nn

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

func TestDropoutLayerDeterministicReturnsInput(t *testing.T) {
	layer, err := NewDropoutLayer(NewInput(-1, 5), WithP(0.4))
	require.NoError(t, err)
	x := tensor.Randn(3, 5)

	out, err := layer.OutputFor(x, true)
	require.NoError(t, err)
	assert.Same(t, x, out)

	layer.Eval()
	out, err = layer.Forward(x)
	require.NoError(t, err)
	assert.Same(t, x, out)
}

func TestDropoutLayerZeroProbabilityReturnsInput(t *testing.T) {
	layer, err := NewDropoutLayer(NewInput(-1, 5), WithP(0))
	require.NoError(t, err)
	x := tensor.Randn(3, 5)
	out, err := layer.Forward(x)
	require.NoError(t, err)
	assert.Same(t, x, out)
}

func TestDropoutLayerRejectsBadConfig(t *testing.T) {
	_, err := NewDropoutLayer(NewInput(2), WithP(1))
	assert.ErrorIs(t, err, ErrInvalidProbability)
	_, err = NewDropoutLayer(NewInput(2), WithP(-0.1))
	assert.ErrorIs(t, err, ErrInvalidProbability)
	_, err = NewDropoutLayer(nil)
	assert.Error(t, err)
	_, err = NewDropoutLayer(NewInput(2, 3), WithSharedAxes(2))
	assert.Error(t, err)
}

func TestDropoutLayerDefaults(t *testing.T) {
	layer, err := NewDropoutLayer(NewInput(-1, 7))
	require.NoError(t, err)
	assert.Equal(t, 0.5, layer.P())
	assert.True(t, layer.Rescale())
	assert.Empty(t, layer.SharedAxes())
	assert.Nil(t, layer.MaskSource())
	assert.Equal(t, []int{-1, 7}, layer.OutputShape())
	assert.Empty(t, layer.Parameters())
}

func TestDropoutLayerExternalMask(t *testing.T) {
	mask := tensor.MustNew([]float64{1, 0, 1, 0}, 2, 2)
	x := tensor.MustNew([]float64{1, 2, 3, 4}, 2, 2)

	layer, err := NewDropoutLayer(NewInput(2, 2), WithP(0.5), WithMask(mask), WithSharedAxes(0))
	require.NoError(t, err)
	out, err := layer.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 6, 0}, out.Data())

	plain, err := NewDropoutLayer(NewInput(2, 2), WithP(0.5), WithMask(mask), WithRescale(false))
	require.NoError(t, err)
	out, err = plain.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 3, 0}, out.Data())

	row := tensor.MustNew([]float64{0, 1}, 2)
	plain.SetMask(NewStaticMask(row))
	out, err = plain.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 0, 4}, out.Data())

	plain.SetMask(NewStaticMask(tensor.Ones(3)))
	_, err = plain.Forward(x)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestDropoutLayerNilMaskDrawsOwn(t *testing.T) {
	layer, err := NewDropoutLayer(NewInput(-1, 4), WithMask(nil), WithSeed(3))
	require.NoError(t, err)
	assert.Nil(t, layer.MaskSource())
	out, err := layer.Forward(tensor.Ones(8, 4))
	require.NoError(t, err)
	for _, v := range out.Data() {
		assert.True(t, v == 0 || v == 2, "unexpected value %v", v)
	}
}

func TestDropoutLayerSampledMask(t *testing.T) {
	layer, err := NewDropoutLayer(NewInput(-1, 50), WithP(0.2), WithSeed(42))
	require.NoError(t, err)
	x := tensor.Ones(200, 50)
	x.SetRequiresGrad(true)
	out, err := layer.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, x.Shape(), out.Shape())

	kept := 0.0
	for _, v := range out.Data() {
		require.True(t, v == 0 || v == 1/0.8, "unexpected value %v", v)
		if v != 0 {
			kept++
		}
	}
	assert.InDelta(t, 0.8, kept/float64(out.Numel()), 0.02)

	require.NoError(t, tensor.Sum(out).Backward())
	assert.Equal(t, out.Data(), x.Grad().Data())
}

func TestDropoutLayerSeedIsReproducible(t *testing.T) {
	run := func() []float64 {
		layer, err := NewDropoutLayer(NewInput(-1, 16), WithSeed(9))
		require.NoError(t, err)
		out, err := layer.Forward(tensor.Ones(4, 16))
		require.NoError(t, err)
		return out.Data()
	}
	assert.Equal(t, run(), run())
}

func TestDropoutLayerSharedAxes(t *testing.T) {
	layer, err := NewDropoutLayer(NewInput(-1, 3, 40), WithP(0.5), WithSharedAxes(0, -1), WithRescale(false), WithSeed(5))
	require.NoError(t, err)
	out, err := layer.Forward(tensor.Ones(6, 3, 40))
	require.NoError(t, err)
	data := out.Data()
	for c := 0; c < 3; c++ {
		first := data[c*40]
		for b := 0; b < 6; b++ {
			for k := 0; k < 40; k++ {
				assert.Equal(t, first, data[b*120+c*40+k], "channel %d not shared", c)
			}
		}
	}
}

func TestDropoutLayerDeclaredShapeWins(t *testing.T) {
	layer, err := NewDropoutLayer(NewInput(2, 3), WithSeed(1))
	require.NoError(t, err)
	_, err = layer.Forward(tensor.Ones(4, 3))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	out, err := layer.Forward(tensor.Ones(2, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, out.Shape())
}

func TestSharedMaskIsSharedUntilResample(t *testing.T) {
	shared, err := NewSharedMask(0.5, tensor.NewRandomStream(17), 0)
	require.NoError(t, err)
	assert.Zero(t, shared.Generation())

	layers := make([]*DropoutLayer, 4)
	for i := range layers {
		layers[i], err = NewDropoutLayer(NewInput(-1, 64), WithMaskSource(shared), WithRescale(false))
		require.NoError(t, err)
	}

	outs := make([][]float64, len(layers))
	var wg sync.WaitGroup
	for i, layer := range layers {
		wg.Add(1)
		go func(i int, layer *DropoutLayer) {
			defer wg.Done()
			out, err := layer.Forward(tensor.Ones(i+1, 64))
			if assert.NoError(t, err) {
				outs[i] = out.Data()[:64]
			}
		}(i, layer)
	}
	wg.Wait()
	for i := 1; i < len(outs); i++ {
		assert.Equal(t, outs[0], outs[i], "worker %d saw a different mask", i)
	}
	assert.EqualValues(t, 1, shared.Generation())

	before, err := shared.Mask([]int{1, 64})
	require.NoError(t, err)
	require.NoError(t, shared.Resample())
	after, err := shared.Mask([]int{3, 64})
	require.NoError(t, err)
	assert.EqualValues(t, 2, shared.Generation())
	assert.NotSame(t, before, after)
	assert.NotEqual(t, before.Data(), after.Data())
}

func TestSharedMaskValidation(t *testing.T) {
	_, err := NewSharedMask(1, nil)
	assert.ErrorIs(t, err, ErrInvalidProbability)

	m, err := NewSharedMask(0.3, nil, 5)
	require.NoError(t, err)
	_, err = m.Mask([]int{2, 2})
	assert.Error(t, err)
	require.NoError(t, m.Resample())
	assert.EqualValues(t, 1, m.Generation())
}

func TestStaticMaskNil(t *testing.T) {
	_, err := NewStaticMask(nil).Mask([]int{1})
	assert.Error(t, err)
}
