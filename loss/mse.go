package loss

import (
	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

// MSE returns the mean squared error between pred and target as a one
// element tensor.
func MSE(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	diff, err := tensor.Sub(pred, target)
	if err != nil {
		return nil, errors.Wrap(err, "mse")
	}
	return tensor.Mean(tensor.Pow(diff, 2)), nil
}
