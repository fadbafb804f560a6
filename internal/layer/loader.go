package layer

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Load reads a shapefile into a Layer: one geometry plus one attribute row
// per record. The file's coordinates are taken as-is; no reprojection.
func Load(ref Ref) (*Layer, error) {
	if _, err := os.Stat(ref.Path); err != nil {
		return nil, eris.Wrapf(ErrMissingLayer, "%s at %s", ref.Name, ref.Path)
	}

	reader, err := shp.Open(ref.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: open shapefile %s", ref.Path)
	}
	defer func() { _ = reader.Close() }()

	fields := make([]string, len(reader.Fields()))
	for i, f := range reader.Fields() {
		fields[i] = strings.TrimRight(f.String(), "\x00")
	}

	l := &Layer{Name: ref.Name, Fields: fields}
	for reader.Next() {
		_, shape := reader.Shape()
		l.Geoms = append(l.Geoms, shapeToGeom(shape))

		row := make([]string, len(fields))
		for i := range fields {
			row[i] = strings.TrimSpace(reader.Attribute(i))
		}
		l.Rows = append(l.Rows, row)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "layer: read shapefile %s", ref.Path)
	}

	zap.L().Info("layer loaded",
		zap.String("component", "layer"),
		zap.String("layer", ref.Name),
		zap.Int("records", l.Len()),
		zap.Int("fields", len(fields)),
	)
	return l, nil
}

// shapeToGeom converts a go-shp shape to a go-geom geometry. Unsupported
// shape kinds map to nil and are excluded later by the coordinate extractor.
func shapeToGeom(s shp.Shape) geom.T {
	switch t := s.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{t.X, t.Y})

	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{t.X, t.Y})

	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{t.X, t.Y})

	case *shp.MultiPoint:
		return multiPointToGeom(t.Points)

	case *shp.Polygon:
		return polygonToGeom(t.NumParts, t.Parts, t.Points)

	case *shp.PolyLine:
		return polyLineToGeom(t.NumParts, t.Parts, t.Points)

	default:
		return nil
	}
}

func multiPointToGeom(points []shp.Point) geom.T {
	if len(points) == 0 {
		return geom.NewMultiPoint(geom.XY)
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return geom.NewMultiPointFlat(geom.XY, flat)
}

// polygonToGeom converts shapefile polygon parts to a MultiPolygon, one
// single-ring polygon per part.
func polygonToGeom(numParts int32, parts []int32, points []shp.Point) geom.T {
	if numParts == 0 || len(points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < numParts; i++ {
		start, end := partRange(i, numParts, parts, len(points))

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, points[j].X, points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("layer: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("layer: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func polyLineToGeom(numParts int32, parts []int32, points []shp.Point) geom.T {
	if numParts == 0 || len(points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < numParts; i++ {
		start, end := partRange(i, numParts, parts, len(points))

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, points[j].X, points[j].Y)
		}

		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("layer: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// partRange returns the [start, end) point span of part i.
func partRange(i, numParts int32, parts []int32, numPoints int) (int, int) {
	start := int(parts[i])
	end := numPoints
	if i+1 < numParts {
		end = int(parts[i+1])
	}
	return start, end
}
