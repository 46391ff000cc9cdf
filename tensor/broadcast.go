package tensor

import (
	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/internal/parallel"
)

// BroadcastTo expands t to targetShape following numpy rules: dimensions are
// aligned from the right and only size-1 (or missing) dimensions may grow.
// The result is a contiguous copy; gradients are summed back onto t.
func BroadcastTo(t *Tensor, targetShape []int) (*Tensor, error) {
	srcShape := t.shape
	srcRank := len(srcShape)
	tgtRank := len(targetShape)
	if tgtRank < srcRank {
		return nil, errors.Errorf("cannot broadcast shape %v to lower rank shape %v", srcShape, targetShape)
	}
	if SameShape(srcShape, targetShape) {
		return t, nil
	}
	off := tgtRank - srcRank
	strides := make([]int, tgtRank)
	for i := tgtRank - 1; i >= 0; i-- {
		srcDim, stride := 1, 0
		if i-off >= 0 {
			srcDim = srcShape[i-off]
			stride = t.strides[i-off]
		}
		tgtDim := targetShape[i]
		if tgtDim <= 0 {
			return nil, errors.Errorf("invalid broadcast target %v", targetShape)
		}
		if srcDim == tgtDim {
			strides[i] = stride
			continue
		}
		if srcDim != 1 {
			return nil, errors.Wrapf(ErrShapeMismatch, "cannot broadcast %v to %v", srcShape, targetShape)
		}
		strides[i] = 0
	}
	out := Zeros(targetShape...)
	parallel.For(len(out.data), func(start, end int) {
		for flat := start; flat < end; flat++ {
			rem, src := flat, 0
			for axis := tgtRank - 1; axis >= 0; axis-- {
				dim := targetShape[axis]
				src += (rem % dim) * strides[axis]
				rem /= dim
			}
			out.data[flat] = t.data[src]
		}
	})
	attachUnaryGrad(out, t, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		reduced, err := ReduceToShape(grad, srcShape)
		if err != nil {
			panic(err)
		}
		accumulate(grads, t, reduced)
	})
	return out, nil
}

// ReduceToShape sums grad over the axes that were broadcast to reach its
// shape from targetShape.
func ReduceToShape(grad *Tensor, targetShape []int) (*Tensor, error) {
	tgt := append([]int(nil), targetShape...)
	if len(tgt) == 0 {
		tgt = []int{1}
	}
	if len(tgt) > len(grad.shape) {
		return nil, errors.Errorf("target rank %d greater than grad rank %d", len(tgt), len(grad.shape))
	}
	out := grad
	diff := len(out.shape) - len(tgt)
	for axis := 0; axis < len(out.shape); axis++ {
		tgtDim := 1
		if axis >= diff {
			tgtDim = tgt[axis-diff]
		}
		if out.shape[axis] == tgtDim {
			continue
		}
		if tgtDim != 1 {
			return nil, errors.Wrapf(ErrShapeMismatch, "cannot reduce %v to %v", grad.shape, targetShape)
		}
		out = reduceAxis(out, axis)
	}
	if !SameShape(out.shape, tgt) {
		return reshapeKeep(out, tgt), nil
	}
	return out, nil
}

func reduceAxis(t *Tensor, axis int) *Tensor {
	if axis < 0 || axis >= len(t.shape) {
		panic("axis out of range")
	}
	shape := append([]int(nil), t.shape...)
	axisSize := shape[axis]
	shape[axis] = 1
	out := Zeros(shape...)
	outer := numel(t.shape[:axis])
	inner := numel(t.shape[axis+1:])
	parallel.For(outer, func(start, end int) {
		for o := start; o < end; o++ {
			dstBase := o * inner
			srcBase := o * axisSize * inner
			for k := 0; k < axisSize; k++ {
				srcOffset := srcBase + k*inner
				for j := 0; j < inner; j++ {
					out.data[dstBase+j] += t.data[srcOffset+j]
				}
			}
		}
	})
	return out
}

func reshapeKeep(t *Tensor, shape []int) *Tensor {
	if numel(shape) != len(t.data) {
		panic("reshapeKeep size mismatch")
	}
	return &Tensor{
		data:    t.data,
		shape:   append([]int(nil), shape...),
		strides: makeStrides(shape),
	}
}

// AddBroadcast computes a + b with b broadcast to the shape of a.
func AddBroadcast(a, b *Tensor) (*Tensor, error) {
	expanded, err := BroadcastTo(b, a.shape)
	if err != nil {
		return nil, errors.Wrap(err, "AddBroadcast")
	}
	return Add(a, expanded)
}

// MulBroadcast computes a * b with b broadcast to the shape of a.
func MulBroadcast(a, b *Tensor) (*Tensor, error) {
	expanded, err := BroadcastTo(b, a.shape)
	if err != nil {
		return nil, errors.Wrap(err, "MulBroadcast")
	}
	return Mul(a, expanded)
}
