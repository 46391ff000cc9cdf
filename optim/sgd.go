package optim

import (
	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

// SGD builds stochastic gradient descent updates of the form
//
//	param := param - learningRate * gradient
//
// for every parameter, in the order given. Nothing is written to the
// parameters; call Apply on the result to commit the step. Update values are
// detached from the graph.
func SGD(lossOrGrads LossOrGrads, params []*tensor.Tensor, learningRate float64) (*Updates, error) {
	grads, err := GetOrComputeGrads(lossOrGrads, params)
	if err != nil {
		return nil, err
	}
	updates := NewUpdates()
	for i, param := range params {
		step := tensor.MulScalar(grads[i].Detach(), learningRate)
		value, err := tensor.Sub(param.Detach(), step)
		if err != nil {
			return nil, errors.Wrapf(err, "sgd update for parameter %d", i)
		}
		updates.Set(param, value)
	}
	return updates, nil
}

// SGDOptimizer is a stateful SGD over the gradients accumulated by Backward,
// with optional momentum, weight decay, clipping and constraints.
type SGDOptimizer struct {
	params        []*tensor.Tensor
	lr            float64
	momentum      float64
	weightDecay   float64
	nesterov      bool
	velocity      map[*tensor.Tensor]*tensor.Tensor
	maxGradNorm   float64
	gradNormType  float64
	gradValueClip float64
	constraints   []Constraint
}

type SGDConfig struct {
	LR            float64
	Momentum      float64
	WeightDecay   float64
	Nesterov      bool
	MaxGradNorm   float64
	GradNormType  float64
	GradValueClip float64
	Constraints   []Constraint
}

func NewSGDOptimizer(params []*tensor.Tensor, lr float64, momentum float64) *SGDOptimizer {
	return NewSGDOptimizerWithConfig(params, SGDConfig{LR: lr, Momentum: momentum})
}

func NewSGDOptimizerWithConfig(params []*tensor.Tensor, cfg SGDConfig) *SGDOptimizer {
	return &SGDOptimizer{
		params:        append([]*tensor.Tensor(nil), params...),
		lr:            cfg.LR,
		momentum:      cfg.Momentum,
		weightDecay:   cfg.WeightDecay,
		nesterov:      cfg.Nesterov,
		velocity:      make(map[*tensor.Tensor]*tensor.Tensor),
		maxGradNorm:   cfg.MaxGradNorm,
		gradNormType:  cfg.GradNormType,
		gradValueClip: cfg.GradValueClip,
		constraints:   append([]Constraint(nil), cfg.Constraints...),
	}
}

// Step turns the accumulated gradients into effective gradients (decay and
// momentum applied) and commits the resulting SGD updates. Parameters without
// a gradient are skipped.
func (o *SGDOptimizer) Step() error {
	if o.maxGradNorm > 0 {
		ClipGradNorm(o.params, o.maxGradNorm, o.gradNormType)
	}
	if o.gradValueClip > 0 {
		ClipGradValue(o.params, o.gradValueClip)
	}
	var params, grads []*tensor.Tensor
	for _, p := range o.params {
		if p == nil {
			continue
		}
		grad := p.Grad()
		if grad == nil {
			continue
		}
		effective, err := o.effectiveGrad(p, grad)
		if err != nil {
			return err
		}
		params = append(params, p)
		grads = append(grads, effective)
	}
	updates, err := SGD(Grads(grads...), params, o.lr)
	if err != nil {
		return err
	}
	if err := updates.Apply(); err != nil {
		return err
	}
	for _, p := range updates.Params() {
		for _, c := range o.constraints {
			if err := c.Apply(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *SGDOptimizer) effectiveGrad(p, grad *tensor.Tensor) (*tensor.Tensor, error) {
	update := grad
	if o.weightDecay > 0 {
		if err := update.AddScaled(p, o.weightDecay); err != nil {
			return nil, err
		}
	}
	if o.momentum <= 0 {
		return update, nil
	}
	v := o.velocity[p]
	if v == nil {
		v = tensor.Zeros(grad.Shape()...)
	}
	v.Scale(o.momentum)
	if err := v.AddScaled(update, 1.0); err != nil {
		return nil, err
	}
	o.velocity[p] = v
	if !o.nesterov {
		return v.Clone(), nil
	}
	ahead := update.Clone()
	if err := ahead.AddScaled(v, o.momentum); err != nil {
		return nil, err
	}
	return ahead, nil
}

func (o *SGDOptimizer) LR() float64 {
	return o.lr
}

func (o *SGDOptimizer) SetLR(lr float64) {
	o.lr = lr
}

func (o *SGDOptimizer) SetWeightDecay(v float64) {
	o.weightDecay = v
}

func (o *SGDOptimizer) SetNesterov(enabled bool) {
	o.nesterov = enabled
}

func (o *SGDOptimizer) WeightDecay() float64 {
	return o.weightDecay
}

func (o *SGDOptimizer) Nesterov() bool {
	return o.nesterov
}

func (o *SGDOptimizer) SetGradNorm(maxNorm, normType float64) {
	o.maxGradNorm = maxNorm
	o.gradNormType = normType
}

func (o *SGDOptimizer) GradNorm() (float64, float64) {
	return o.maxGradNorm, o.gradNormType
}

func (o *SGDOptimizer) SetGradValueClip(limit float64) {
	o.gradValueClip = limit
}

func (o *SGDOptimizer) GradValueClip() float64 {
	return o.gradValueClip
}

func (o *SGDOptimizer) AddConstraint(c Constraint) {
	o.constraints = append(o.constraints, c)
}

func (o *SGDOptimizer) Constraints() []Constraint {
	return append([]Constraint(nil), o.constraints...)
}

func (o *SGDOptimizer) ZeroGrad() {
	for _, p := range o.params {
		if p != nil {
			p.ZeroGrad()
		}
	}
}
