package nearest

import (
	"math"

	"github.com/agrodatalab/upa-access/internal/batch"
	"github.com/agrodatalab/upa-access/internal/geometry"
)

// Dense is the pairwise-reduction strategy: for each origin batch it scans
// the facility set block by block, reducing each origin row to its minimum
// and carrying a running minimum across facility blocks. FacilityBatch caps
// the facility-side block so a pairwise pass touches at most
// batch_size x FacilityBatch coordinate pairs at a time; zero means the full
// facility set in one block.
type Dense struct {
	FacilityBatch int
}

// Name implements Strategy.
func (Dense) Name() string { return "dense" }

// Build implements Strategy.
func (d Dense) Build(facilities []geometry.Coord) (Searcher, error) {
	fb := d.FacilityBatch
	if fb <= 0 || fb > len(facilities) {
		fb = len(facilities)
	}
	return &denseSearcher{facilities: facilities, facilityBatch: fb}, nil
}

type denseSearcher struct {
	facilities    []geometry.Coord
	facilityBatch int
}

// Search scans facility blocks in ascending order and updates the running
// minimum only on strict improvement, so ties resolve to the
// earliest-processed facility deterministically.
func (s *denseSearcher) Search(origins []geometry.Coord, out []Match) error {
	best := make([]float64, len(origins))
	for i := range best {
		best[i] = math.Inf(1)
		out[i] = Match{Facility: -1}
	}

	ranges, err := batch.Ranges(len(s.facilities), s.facilityBatch)
	if err != nil {
		return err
	}

	for r := range ranges {
		block := s.facilities[r.Start:r.End]
		for i, o := range origins {
			for j, f := range block {
				if d := sqDist(o, f); d < best[i] {
					best[i] = d
					out[i].Facility = r.Start + j
				}
			}
		}
	}

	for i := range out {
		out[i].Distance = math.Sqrt(best[i])
	}
	return nil
}
