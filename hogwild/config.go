package hogwild

import (
	"runtime"

	"github.com/pkg/errors"
)

// Config controls how a Manager runs its workers.
type Config struct {
	// Workers is the number of goroutines that train concurrently.
	Workers int
	// StepsPerWorker is the number of steps every worker runs.
	StepsPerWorker int
	// ResampleEvery redraws all shared masks after this many steps completed
	// across all workers. Zero keeps masks fixed.
	ResampleEvery int
	// LogEvery emits a progress line after this many completed steps. Zero
	// disables progress logging.
	LogEvery int
}

func DefaultConfig() Config {
	return Config{
		Workers:        runtime.GOMAXPROCS(0),
		StepsPerWorker: 100,
		ResampleEvery:  1,
	}
}

func (c Config) Validate() error {
	if c.Workers < 1 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.StepsPerWorker < 0 {
		return errors.Errorf("steps per worker must not be negative, got %d", c.StepsPerWorker)
	}
	if c.ResampleEvery < 0 {
		return errors.Errorf("resample interval must not be negative, got %d", c.ResampleEvery)
	}
	if c.LogEvery < 0 {
		return errors.Errorf("log interval must not be negative, got %d", c.LogEvery)
	}
	return nil
}

// TotalSteps is the number of steps a full Run performs.
func (c Config) TotalSteps() int {
	return c.Workers * c.StepsPerWorker
}
