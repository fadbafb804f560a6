package nearest

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"

	"github.com/agrodatalab/upa-access/internal/geometry"
)

// rectTol is the half-side of the degenerate rectangle that represents a
// point in the R-tree. Well below the 1e-6 m distance tolerance.
const rectTol = 1e-9

// Indexed is the spatial-index strategy: a balanced R-tree is built once
// over the full facility set, then queried per origin for a small candidate
// set that is re-ranked by exact point distance. Candidates controls how
// many index neighbors are re-ranked per origin; the exact re-rank keeps the
// result and its tie-break (earliest facility index) identical to the dense
// strategy up to floating-point rounding.
type Indexed struct {
	Candidates int
}

// Name implements Strategy.
func (Indexed) Name() string { return "indexed" }

// Build implements Strategy.
func (ix Indexed) Build(facilities []geometry.Coord) (Searcher, error) {
	k := ix.Candidates
	if k <= 0 {
		k = 4
	}
	if k > len(facilities) {
		k = len(facilities)
	}

	tree := rtreego.NewTree(2, 25, 50)
	items := make([]facilityItem, len(facilities))
	for i, f := range facilities {
		items[i] = facilityItem{
			index:  i,
			coord:  f,
			bounds: rtreego.Point{f.X, f.Y}.ToRect(rectTol),
		}
		tree.Insert(&items[i])
	}

	return &indexedSearcher{facilities: facilities, tree: tree, candidates: k}, nil
}

type facilityItem struct {
	index  int
	coord  geometry.Coord
	bounds rtreego.Rect
}

func (f *facilityItem) Bounds() rtreego.Rect { return f.bounds }

type indexedSearcher struct {
	facilities []geometry.Coord
	tree       *rtreego.Rtree
	candidates int
}

// Search queries the index per origin. The tree is read-only after Build, so
// concurrent queries over disjoint out slices are safe.
func (s *indexedSearcher) Search(origins []geometry.Coord, out []Match) error {
	for i, o := range origins {
		neighbors := s.tree.NearestNeighbors(s.candidates, rtreego.Point{o.X, o.Y})

		bestIdx := -1
		best := math.Inf(1)
		for _, n := range neighbors {
			item, ok := n.(*facilityItem)
			if !ok || item == nil {
				continue
			}
			d := sqDist(o, item.coord)
			if d < best || (d == best && item.index < bestIdx) {
				best = d
				bestIdx = item.index
			}
		}

		if bestIdx < 0 {
			return eris.Errorf("nearest: index returned no candidates for origin %d", i)
		}
		out[i] = Match{Facility: bestIdx, Distance: math.Sqrt(best)}
	}
	return nil
}
