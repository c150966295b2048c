// Package parallel provides a helper to process contiguous index ranges
// concurrently. The work function is called on disjoint [start, end) chunks,
// so in-place writes need no synchronization.
package parallel

import (
	"runtime"
	"sync"
)

// Execute splits [0, n) into contiguous chunks and processes them in
// parallel, blocking until all chunks are done. work must not touch indices
// outside its [start, end) range.
func Execute(n int, work func(start, end int)) {
	nbTasks := runtime.NumCPU()
	nbIterationsPerCpus := n / nbTasks

	// more CPUs than tasks: one iteration per CPU
	if nbIterationsPerCpus < 1 {
		nbIterationsPerCpus = 1
		nbTasks = n
	}

	var wg sync.WaitGroup

	extraTasks := n - (nbTasks * nbIterationsPerCpus)
	extraTasksOffset := 0

	for i := 0; i < nbTasks; i++ {
		wg.Add(1)
		_start := i*nbIterationsPerCpus + extraTasksOffset
		_end := _start + nbIterationsPerCpus
		if extraTasks > 0 {
			_end++
			extraTasks--
			extraTasksOffset++
		}
		go func() {
			work(_start, _end)
			wg.Done()
		}()
	}

	wg.Wait()
}
