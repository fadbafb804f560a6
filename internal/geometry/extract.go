// Package geometry normalizes heterogeneous geometry collections into flat
// planar coordinate arrays for distance computation.
package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// ErrUnsupportedGeometry marks an entity whose representative point could not
// be computed (nil or empty geometry, or a type the centroid calculation does
// not support).
var ErrUnsupportedGeometry = eris.New("geometry: unsupported geometry")

// Coord is a planar coordinate pair in the projected unit (meters).
type Coord struct {
	X float64
	Y float64
}

// Skipped records an entity that was excluded from extraction, with its index
// in the source collection.
type Skipped struct {
	Index int
	Err   error
}

// Extraction is the result of normalizing a geometry collection. Coords[i]
// came from source entry Source[i]; entries listed in Skipped produced no
// coordinate.
type Extraction struct {
	Coords  []Coord
	Source  []int
	Skipped []Skipped
}

// Extract resolves each geometry to exactly one representative coordinate:
// a Point keeps its native coordinates, a MultiPoint reduces to its first
// member point, and any other geometry reduces to its centroid. Reducing a
// MultiPoint to its first member rather than its centroid is a deliberate,
// lossy simplification inherited from the census source data, where extra
// members duplicate the primary location.
//
// Entities whose representative point cannot be computed are excluded and
// recorded in Skipped with their source index, so callers can keep origin
// attributes aligned through Source. Extract never fails as a whole.
func Extract(geoms []geom.T) Extraction {
	ext := Extraction{
		Coords: make([]Coord, 0, len(geoms)),
		Source: make([]int, 0, len(geoms)),
	}

	for i, g := range geoms {
		c, err := representative(g)
		if err != nil {
			ext.Skipped = append(ext.Skipped, Skipped{Index: i, Err: err})
			continue
		}
		ext.Coords = append(ext.Coords, c)
		ext.Source = append(ext.Source, i)
	}

	return ext
}

// representative resolves a single geometry to its representative coordinate.
func representative(g geom.T) (Coord, error) {
	if g == nil {
		return Coord{}, eris.Wrap(ErrUnsupportedGeometry, "nil geometry")
	}

	switch t := g.(type) {
	case *geom.Point:
		return Coord{X: t.X(), Y: t.Y()}, nil

	case *geom.MultiPoint:
		if t.NumPoints() == 0 {
			return Coord{}, eris.Wrap(ErrUnsupportedGeometry, "empty multipoint")
		}
		p := t.Point(0)
		return Coord{X: p.X(), Y: p.Y()}, nil

	default:
		c, err := xy.Centroid(g)
		if err != nil {
			return Coord{}, eris.Wrap(ErrUnsupportedGeometry, err.Error())
		}
		if len(c) < 2 || math.IsNaN(c.X()) || math.IsNaN(c.Y()) {
			return Coord{}, eris.Wrap(ErrUnsupportedGeometry, "centroid undefined")
		}
		return Coord{X: c.X(), Y: c.Y()}, nil
	}
}
