package access

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

// RegionMean is the mean nearest-facility distance over one region's
// origins. Origins counts only the origins that contributed to the mean.
type RegionMean struct {
	RegionID   string
	MeanMeters float64
	Origins    int
}

// AggregateByRegion groups per-origin distances by region identifier and
// reduces each group to its mean. Origins with a non-finite distance are
// excluded from both the mean and the count; a region whose origins all have
// non-finite distances produces no row. Output is sorted by region id for
// deterministic results.
func AggregateByRegion(regionIDs []string, distances []float64) ([]RegionMean, error) {
	if len(regionIDs) != len(distances) {
		return nil, eris.Errorf("access: region ids (%d) and distances (%d) must align", len(regionIDs), len(distances))
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, region := range regionIDs {
		d := distances[i]
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		sums[region] += d
		counts[region]++
	}

	means := make([]RegionMean, 0, len(sums))
	for region, sum := range sums {
		means = append(means, RegionMean{
			RegionID:   region,
			MeanMeters: sum / float64(counts[region]),
			Origins:    counts[region],
		})
	}
	sort.Slice(means, func(i, j int) bool { return means[i].RegionID < means[j].RegionID })
	return means, nil
}
