package images

import (
	"runtime"
	"sync"
)

// minRowsPerWorker keeps small rasters on the calling goroutine.
const minRowsPerWorker = 64

// Parallel executes fn over [0, dataSize) split into contiguous partitions, one per CPU.
// Partitions never overlap, so fn may write to its own rows without locking.
//
// Arguments:
// - dataSize: The number of rows (or items) to process.
// - fn: Function to execute for each partition (receives start and end indices).
//
// Returns:
// - None.
//
// @example
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	if dataSize <= 0 {
		return
	}

	workers := runtime.NumCPU()
	if limit := dataSize / minRowsPerWorker; limit < workers {
		workers = limit
	}
	if workers <= 1 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize
		// Last partition gets any remaining rows.
		if i == workers-1 {
			partEnd = dataSize
		}
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}
	wg.Wait()
}
