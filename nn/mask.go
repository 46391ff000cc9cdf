package nn

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/fumitoshi0524/hogwildnet/tensor"
)

// MaskSource supplies the dropout mask a DropoutLayer multiplies its input by.
// The returned tensor must be broadcastable to shape and must not be mutated
// afterwards, since several goroutines may hold it at once.
type MaskSource interface {
	Mask(shape []int) (*tensor.Tensor, error)
}

// StaticMask always returns the same tensor.
type StaticMask struct {
	mask *tensor.Tensor
}

func NewStaticMask(mask *tensor.Tensor) *StaticMask {
	return &StaticMask{mask: mask}
}

func (s *StaticMask) Mask([]int) (*tensor.Tensor, error) {
	if s.mask == nil {
		return nil, errors.New("static mask is nil")
	}
	return s.mask, nil
}

// SharedMask is a Bernoulli mask observed by many workers at once. Every call
// to Mask returns the same tensor until Resample draws a new one, so workers
// that run between two resamples drop exactly the same units.
type SharedMask struct {
	p          float64
	sharedAxes []int
	srng       *tensor.RandomStream

	mu         sync.RWMutex
	shape      []int
	current    *tensor.Tensor
	generation uint64
}

// NewSharedMask creates a mask that drops units with probability p. Axes in
// sharedAxes get size 1 in the mask, so the same draw covers the whole axis;
// sharing the batch axis keeps the mask stable across batch sizes.
func NewSharedMask(p float64, stream *tensor.RandomStream, sharedAxes ...int) (*SharedMask, error) {
	if p < 0 || p >= 1 {
		return nil, errors.Wrapf(ErrInvalidProbability, "shared mask p=%v", p)
	}
	if stream == nil {
		stream = tensor.DefaultStream().Fork()
	}
	return &SharedMask{
		p:          p,
		sharedAxes: append([]int(nil), sharedAxes...),
		srng:       stream,
	}, nil
}

func (m *SharedMask) Mask(shape []int) (*tensor.Tensor, error) {
	want, err := tensor.SharedMaskShape(shape, m.sharedAxes)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	if m.current != nil && tensor.SameShape(m.shape, want) {
		cur := m.current
		m.mu.RUnlock()
		return cur, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && tensor.SameShape(m.shape, want) {
		return m.current, nil
	}
	if err := m.sampleLocked(want); err != nil {
		return nil, err
	}
	return m.current, nil
}

// Resample replaces the current mask with a fresh draw of the same shape.
// Tensors handed out earlier are left untouched.
func (m *SharedMask) Resample() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shape == nil {
		m.generation++
		return nil
	}
	return m.sampleLocked(m.shape)
}

// Generation counts how many masks have been drawn or invalidated.
func (m *SharedMask) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

func (m *SharedMask) sampleLocked(shape []int) error {
	mask, err := m.srng.DropoutMask(m.p, shape)
	if err != nil {
		return errors.Wrap(err, "sample shared mask")
	}
	m.shape = append([]int(nil), shape...)
	m.current = mask
	m.generation++
	return nil
}
