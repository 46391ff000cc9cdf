package loss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

func TestMSEForwardBackward(t *testing.T) {
	pred := tensor.MustNew([]float64{1, 3}, 2, 1)
	pred.SetRequiresGrad(true)
	target := tensor.MustNew([]float64{2, 1}, 2, 1)

	l, err := MSE(pred, target)
	require.NoError(t, err)
	v, err := l.Item()
	require.NoError(t, err)
	assert.InDelta(t, (1.0+4.0)/2, v, 1e-9)

	require.NoError(t, l.Backward())
	assert.InDeltaSlice(t, []float64{-1, 2}, pred.Grad().Data(), 1e-9)
}

func TestMSEShapeMismatch(t *testing.T) {
	_, err := MSE(tensor.Zeros(2), tensor.Zeros(3))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}
