// Package benchmark - Stopwatch helpers and detector benchmark scenarios.
package benchmark

import (
	"fmt"
	"time"
)

// MeasureMsecs runs fn iters times and returns the mean wall time per iteration
// in milliseconds. It stops at the first error. Zero iterations measure 0.
//
// Arguments:
//   - iters: The number of timed iterations.
//   - fn: The function to time.
//
// Returns:
//   - float64: The mean milliseconds per iteration.
//   - error: The first error fn returned, annotated with its iteration.
func MeasureMsecs(iters int, fn func() error) (float64, error) {
	if iters <= 0 {
		return 0, nil
	}
	begin := time.Now()
	for i := 0; i < iters; i++ {
		if err := fn(); err != nil {
			return 0, fmt.Errorf("iteration %d: %w", i, err)
		}
	}
	return Msecs(time.Since(begin)) / float64(iters), nil
}

// MeasureMsecsWithWarmup runs fn warmup times untimed, then measures iters
// iterations with MeasureMsecs.
func MeasureMsecsWithWarmup(iters, warmup int, fn func() error) (float64, error) {
	if _, err := MeasureMsecs(warmup, fn); err != nil {
		return 0, fmt.Errorf("warmup: %w", err)
	}
	return MeasureMsecs(iters, fn)
}

// Msecs converts a duration to fractional milliseconds.
func Msecs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
