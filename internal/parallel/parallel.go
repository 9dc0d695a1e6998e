// Package parallel implements the intra-worker concurrency model
// SPEC_FULL.md section 5 describes: within a single comm.Comm worker,
// a data-parallel loop over grid cells or particles is split into
// contiguous ranges, run on a golang.org/x/sync/errgroup.Group of
// goroutines, each filling a private partial accumulator, merged back
// into the caller's accumulator in one deterministic pass after every
// goroutine has returned.
package parallel

import "runtime"

// minChunk is the smallest amount of work worth handing to its own
// goroutine. Below this, Ranges returns the whole span as a single
// range and the caller should skip the partial-accumulator machinery
// entirely.
const minChunk = 4096

// Ranges splits [0, n) into contiguous, non-overlapping [start, end)
// ranges, at most runtime.GOMAXPROCS(0) of them, each but the last at
// least minChunk wide (the last holds the remainder and can be
// shorter). It returns a single range covering all of [0, n) if n
// isn't worth splitting.
func Ranges(n int) [][2]int {
	if n <= minChunk {
		return [][2]int{{0, n}}
	}
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if max := n / minChunk; workers > max {
		workers = max
	}
	if workers <= 1 {
		return [][2]int{{0, n}}
	}

	chunk := (n + workers - 1) / workers
	ranges := make([][2]int, 0, workers)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
