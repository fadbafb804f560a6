package access

import (
	"math"
	"sort"
)

// Stats summarizes one distance column in meters.
type Stats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
}

// Summarize computes summary statistics over the finite values of a distance
// vector. A vector with no finite values yields a zero Stats.
func Summarize(distances []float64) Stats {
	finite := make([]float64, 0, len(distances))
	for _, d := range distances {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		finite = append(finite, d)
	}
	if len(finite) == 0 {
		return Stats{}
	}

	sort.Float64s(finite)
	sum := 0.0
	for _, d := range finite {
		sum += d
	}

	mid := len(finite) / 2
	median := finite[mid]
	if len(finite)%2 == 0 {
		median = (finite[mid-1] + finite[mid]) / 2
	}

	return Stats{
		Count:  len(finite),
		Min:    finite[0],
		Max:    finite[len(finite)-1],
		Mean:   sum / float64(len(finite)),
		Median: median,
	}
}
