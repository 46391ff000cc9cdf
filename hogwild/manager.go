// Package hogwild runs several training workers over one set of shared
// parameters and keeps their dropout masks in step.
//
// Workers compute forward passes and gradients concurrently under a shared
// read lock and commit their SGD steps one at a time against the current
// parameter values, so a stale gradient is still applied and never lost. Masks registered with
// ShareMasks are redrawn on a global step schedule, so all workers that run
// between two redraws drop the same units.
package hogwild

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fumitoshi0524/hogwildnet/nn"
	"github.com/fumitoshi0524/hogwildnet/optim"
	"github.com/fumitoshi0524/hogwildnet/tensor"
)

// StepFunc performs one training step for a worker.
type StepFunc func(ctx context.Context, w *Worker) error

type Manager struct {
	cfg    Config
	logger zerolog.Logger

	params sync.RWMutex
	steps  atomic.Int64

	maskMu sync.Mutex
	masks  []*nn.SharedMask
}

type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "hogwild config")
	}
	m := &Manager{
		cfg:    cfg,
		logger: log.With().Str("component", "hogwild").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// ShareMasks registers masks that are redrawn every Config.ResampleEvery steps.
func (m *Manager) ShareMasks(masks ...*nn.SharedMask) {
	m.maskMu.Lock()
	defer m.maskMu.Unlock()
	for _, mask := range masks {
		if mask != nil {
			m.masks = append(m.masks, mask)
		}
	}
}

// Steps returns the number of steps completed so far across all workers.
func (m *Manager) Steps() int64 {
	return m.steps.Load()
}

func (m *Manager) Config() Config {
	return m.cfg
}

// Run starts Config.Workers workers and blocks until all of them finished
// their steps, one of them failed, or ctx was cancelled. The first error is
// returned.
func (m *Manager) Run(ctx context.Context, step StepFunc) error {
	if step == nil {
		return errors.New("step function is required")
	}
	m.logger.Info().
		Int("workers", m.cfg.Workers).
		Int("steps_per_worker", m.cfg.StepsPerWorker).
		Int("resample_every", m.cfg.ResampleEvery).
		Msg("starting workers")
	g, ctx := errgroup.WithContext(ctx)
	for id := 0; id < m.cfg.Workers; id++ {
		w := &Worker{id: id, manager: m}
		g.Go(func() error {
			return w.run(ctx, step)
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Error().Err(err).Int64("steps", m.Steps()).Msg("workers stopped")
		return err
	}
	m.logger.Info().Int64("steps", m.Steps()).Msg("workers finished")
	return nil
}

func (m *Manager) completeStep(w *Worker) error {
	n := m.steps.Add(1)
	if m.cfg.ResampleEvery > 0 && n%int64(m.cfg.ResampleEvery) == 0 {
		if err := m.resample(); err != nil {
			return err
		}
	}
	if m.cfg.LogEvery > 0 && n%int64(m.cfg.LogEvery) == 0 {
		m.logger.Debug().Int64("steps", n).Int("worker", w.id).Msg("progress")
	}
	return nil
}

func (m *Manager) resample() error {
	m.maskMu.Lock()
	defer m.maskMu.Unlock()
	for i, mask := range m.masks {
		if err := mask.Resample(); err != nil {
			return errors.Wrapf(err, "resample shared mask %d", i)
		}
	}
	return nil
}

// Worker is the handle a StepFunc receives.
type Worker struct {
	id      int
	step    int
	manager *Manager
}

func (w *Worker) ID() int {
	return w.id
}

// Step is the index of the step currently running on this worker.
func (w *Worker) Step() int {
	return w.step
}

// Read runs fn while no update is being applied. Forward passes and
// gradient computations over shared parameters belong here. fn must not call
// Update or SGD on any worker of the same manager.
func (w *Worker) Read(fn func() error) error {
	w.manager.params.RLock()
	defer w.manager.params.RUnlock()
	return fn()
}

// Update builds updates with build and applies them while holding the write
// lock, so build sees the parameters as left by every earlier update. Build
// the update values here from gradients computed under Read; values computed
// under Read would overwrite steps committed by other workers in between.
//
// Update must not be called from inside a Read callback: the read lock cannot
// be upgraded and the call deadlocks.
func (w *Worker) Update(build func() (*optim.Updates, error)) error {
	w.manager.params.Lock()
	defer w.manager.params.Unlock()
	updates, err := build()
	if err != nil {
		return err
	}
	if updates == nil {
		return nil
	}
	return updates.Apply()
}

// SGD applies param -= lr * grad for every parameter against the current
// parameter values. Like Update, it must not be called from inside Read.
func (w *Worker) SGD(grads, params []*tensor.Tensor, lr float64) error {
	return w.Update(func() (*optim.Updates, error) {
		return optim.SGD(optim.Grads(grads...), params, lr)
	})
}

func (w *Worker) run(ctx context.Context, step StepFunc) error {
	for i := 0; i < w.manager.cfg.StepsPerWorker; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.step = i
		if err := step(ctx, w); err != nil {
			return errors.Wrapf(err, "worker %d step %d", w.id, i)
		}
		if err := w.manager.completeStep(w); err != nil {
			return err
		}
	}
	return nil
}
