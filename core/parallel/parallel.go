// Package parallel runs index-range work across CPU cores.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into one contiguous range per CPU core and
// runs fn on each range concurrently. It returns when every range is done.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit worker count. workers < 1
// means one worker. A panic in any range is re-raised on the calling
// goroutine once all ranges have returned.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > items {
		workers = items // No need for more workers than items
	}

	// ceiling division
	chunkSize := (items + workers - 1) / workers

	var (
		wg       sync.WaitGroup
		once     sync.Once
		panicked interface{}
	)
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { panicked = r })
				}
			}()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
	if panicked != nil {
		panic(panicked)
	}
}

// ParallelizeWithThreshold runs fn sequentially over [0, items) when items is
// at or below threshold, and in parallel otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}
