package tensor

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// RandomStream is a seeded source of random tensors. It is safe for
// concurrent use; draws from one stream are serialised.
type RandomStream struct {
	mu  sync.Mutex
	src *rand.PCG
}

var defaultStream = NewRandomStream(uint64(time.Now().UnixNano()))

// NewRandomStream returns a stream whose draws are fully determined by seed.
func NewRandomStream(seed uint64) *RandomStream {
	return &RandomStream{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

// DefaultStream returns the process-wide stream used by Randn and by layers
// that are not given a seed.
func DefaultStream() *RandomStream {
	return defaultStream
}

// Uint64 draws a raw value, typically used to seed a child stream.
func (s *RandomStream) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// Fork returns a new independent stream seeded from s.
func (s *RandomStream) Fork() *RandomStream {
	return NewRandomStream(s.Uint64())
}

// Binomial draws a tensor of single-trial binomial samples: each element is 1
// with probability p and 0 otherwise.
func (s *RandomStream) Binomial(p float64, shape ...int) (*Tensor, error) {
	if p < 0 || p > 1 {
		return nil, errors.Errorf("binomial probability %v outside [0, 1]", p)
	}
	out, err := New(make([]float64, numel(shape)), shape...)
	if err != nil {
		return nil, errors.Wrap(err, "binomial shape")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dist := distuv.Bernoulli{P: p, Src: s.src}
	for i := range out.data {
		out.data[i] = dist.Rand()
	}
	return out, nil
}

// Normal draws standard normal samples.
func (s *RandomStream) Normal(shape ...int) *Tensor {
	out := Zeros(shape...)
	s.mu.Lock()
	defer s.mu.Unlock()
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: s.src}
	for i := range out.data {
		out.data[i] = dist.Rand()
	}
	return out
}

func Randn(shape ...int) *Tensor {
	return defaultStream.Normal(shape...)
}
