package parallel

import (
	"runtime"
	"sync"
)

// DefaultGrain is the smallest chunk For hands to a goroutine. Element-wise
// kernels on small tensors run inline, which keeps training workers from
// oversubscribing the scheduler.
const DefaultGrain = 2048

func For(n int, fn func(start, end int)) {
	ForGrain(n, DefaultGrain, fn)
}

// ForGrain splits [0, n) into at most GOMAXPROCS chunks of at least grain
// elements and runs fn on each concurrently.
func ForGrain(n, grain int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if grain < 1 {
		grain = 1
	}
	workers := runtime.GOMAXPROCS(0)
	if limit := (n + grain - 1) / grain; workers > limit {
		workers = limit
	}
	if workers <= 1 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
