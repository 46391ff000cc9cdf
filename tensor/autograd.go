package tensor

import (
	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/internal/parallel"
)

// Backward propagates gradients from t to every tensor in its graph and
// accumulates them into their Grad fields.
func (t *Tensor) Backward() error {
	return t.propagate(func(current, grad *Tensor) {
		if current.grad == nil {
			current.grad = grad.Clone()
		} else {
			addInPlace(current.grad, grad)
		}
	})
}

// Gradients returns d(output)/d(w) for every w in wrt without touching any
// tensor's Grad field, so several goroutines may differentiate graphs that
// share leaves. Every w must take part in computing output.
func Gradients(output *Tensor, wrt []*Tensor) ([]*Tensor, error) {
	if output == nil {
		return nil, errors.New("nil tensor")
	}
	if !output.requiresGrad {
		return nil, errors.Wrap(ErrDisconnected, "output does not require grad")
	}
	grads, err := output.collect()
	if err != nil {
		return nil, err
	}
	result := make([]*Tensor, len(wrt))
	for i, w := range wrt {
		if w == nil {
			return nil, errors.Errorf("gradient target %d is nil", i)
		}
		g, ok := grads[w]
		if !ok {
			return nil, errors.Wrapf(ErrDisconnected, "gradient target %d (shape %v)", i, w.shape)
		}
		result[i] = g.Clone()
	}
	return result, nil
}

func (t *Tensor) propagate(visit func(current, grad *Tensor)) error {
	if t == nil {
		return errors.New("nil tensor")
	}
	if !t.requiresGrad {
		return errors.New("tensor does not require grad")
	}
	order := topo(t)
	grads := map[*Tensor]*Tensor{}
	grads[t] = Full(1, t.shape...)
	for i := len(order) - 1; i >= 0; i-- {
		current := order[i]
		grad := grads[current]
		if grad == nil {
			continue
		}
		visit(current, grad)
		if current.node != nil {
			current.node.backward(grad, grads)
		}
	}
	return nil
}

func (t *Tensor) collect() (map[*Tensor]*Tensor, error) {
	grads := map[*Tensor]*Tensor{}
	err := t.propagate(func(current, grad *Tensor) {
		grads[current] = grad
	})
	return grads, err
}

func topo(root *Tensor) []*Tensor {
	visited := map[*Tensor]bool{}
	var order []*Tensor
	var visit func(*Tensor)
	visit = func(node *Tensor) {
		if node == nil {
			return
		}
		if visited[node] {
			return
		}
		visited[node] = true
		for _, parent := range node.parents {
			visit(parent)
		}
		order = append(order, node)
	}
	visit(root)
	return order
}

func accumulate(grads map[*Tensor]*Tensor, target *Tensor, value *Tensor) {
	if target == nil || value == nil {
		return
	}
	if existing, ok := grads[target]; ok {
		addInPlace(existing, value)
	} else {
		grads[target] = value.Clone()
	}
}

func addInPlace(dst, src *Tensor) {
	if err := ensureSameShape(dst, src); err != nil {
		panic(err)
	}
	parallel.For(len(dst.data), func(start, end int) {
		for i := start; i < end; i++ {
			dst.data[i] += src.data[i]
		}
	})
}
