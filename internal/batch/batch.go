// Package batch partitions index spaces into bounded-size chunks so the peak
// memory of any pairwise computation stays capped regardless of dataset size.
package batch

import (
	"iter"

	"github.com/rotisserie/eris"
)

// Range is a half-open [Start, End) slice of an index space.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the range.
func (r Range) Len() int { return r.End - r.Start }

// Ranges returns a restartable sequence of ascending, non-overlapping ranges
// that together cover [0, n) exactly once. A size of at least n yields a
// single range. The sequence can be ranged over multiple times.
func Ranges(n, size int) (iter.Seq[Range], error) {
	if size <= 0 {
		return nil, eris.Errorf("batch: size must be positive, got %d", size)
	}
	if n < 0 {
		return nil, eris.Errorf("batch: item count must be non-negative, got %d", n)
	}

	return func(yield func(Range) bool) {
		for start := 0; start < n; start += size {
			end := min(start+size, n)
			if !yield(Range{Start: start, End: end}) {
				return
			}
		}
	}, nil
}

// Count returns the number of ranges Ranges will yield for the same inputs.
// Used for progress reporting.
func Count(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
