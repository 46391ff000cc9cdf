package tensor

import "github.com/pkg/errors"

// DropoutMask draws a 0/1 keep mask for dropout with drop probability p. Axes
// in sharedAxes have size 1 in the mask, so one draw covers the whole axis and
// the mask broadcasts back to shape. Negative axes count from the end.
func (s *RandomStream) DropoutMask(p float64, shape []int, sharedAxes ...int) (*Tensor, error) {
	if p < 0 || p >= 1 {
		return nil, errors.Errorf("dropout probability %v outside [0, 1)", p)
	}
	maskShape, err := SharedMaskShape(shape, sharedAxes)
	if err != nil {
		return nil, err
	}
	return s.Binomial(1-p, maskShape...)
}

// SharedMaskShape returns shape with every axis in sharedAxes collapsed to 1.
// Negative axes count from the end.
func SharedMaskShape(shape []int, sharedAxes []int) ([]int, error) {
	out := append([]int(nil), shape...)
	for _, axis := range sharedAxes {
		a := axis
		if a < 0 {
			a += len(shape)
		}
		if a < 0 || a >= len(shape) {
			return nil, errors.Errorf("shared axis %d out of range for rank %d", axis, len(shape))
		}
		out[a] = 1
	}
	return out, nil
}
