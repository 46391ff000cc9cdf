package optim

import (
	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

// Updates maps parameters to their new values and remembers the order in
// which parameters were first added.
type Updates struct {
	order  []*tensor.Tensor
	values map[*tensor.Tensor]*tensor.Tensor
}

func NewUpdates() *Updates {
	return &Updates{values: make(map[*tensor.Tensor]*tensor.Tensor)}
}

// Set records value as the update for param. Setting a parameter twice keeps
// its original position and the latest value.
func (u *Updates) Set(param, value *tensor.Tensor) {
	if _, ok := u.values[param]; !ok {
		u.order = append(u.order, param)
	}
	u.values[param] = value
}

func (u *Updates) Get(param *tensor.Tensor) (*tensor.Tensor, bool) {
	v, ok := u.values[param]
	return v, ok
}

func (u *Updates) Len() int {
	return len(u.order)
}

func (u *Updates) Params() []*tensor.Tensor {
	return append([]*tensor.Tensor(nil), u.order...)
}

// Range calls fn for every entry in insertion order until fn returns false.
func (u *Updates) Range(fn func(param, value *tensor.Tensor) bool) {
	for _, p := range u.order {
		if !fn(p, u.values[p]) {
			return
		}
	}
}

// Apply copies every update into its parameter, in order.
func (u *Updates) Apply() error {
	for i, p := range u.order {
		if err := tensor.CopyInto(p, u.values[p]); err != nil {
			return errors.Wrapf(err, "apply update %d", i)
		}
	}
	return nil
}
