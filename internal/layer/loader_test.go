package layer

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// writePointShapefile writes a small point shapefile with codigo and nombre
// attributes, returning its path.
func writePointShapefile(t *testing.T, points []shp.Point, attrs [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layer.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("CODIGO", 16),
		shp.StringField("NOMBRE", 32),
	}))

	for i := range points {
		w.Write(&points[i])
		for j, v := range attrs[i] {
			require.NoError(t, w.WriteAttribute(i, j, v))
		}
	}
	w.Close()
	return path
}

func TestLoadPointShapefile(t *testing.T) {
	path := writePointShapefile(t,
		[]shp.Point{{X: 100, Y: 200}, {X: -50, Y: 75}},
		[][]string{{"C1", "Escuela Norte"}, {"C2", "Escuela Sur"}},
	)

	l, err := Load(Ref{Name: "colegios", Path: path})
	require.NoError(t, err)

	assert.Equal(t, "colegios", l.Name)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []string{"CODIGO", "NOMBRE"}, l.Fields)

	p, ok := l.Geoms[0].(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 100.0, p.X())
	assert.Equal(t, 200.0, p.Y())

	assert.Equal(t, [][]string{{"C1", "Escuela Norte"}, {"C2", "Escuela Sur"}}, l.Rows)
}

func TestLoadMissingShapefile(t *testing.T) {
	_, err := Load(Ref{Name: "colegios", Path: filepath.Join(t.TempDir(), "missing.shp")})
	require.ErrorIs(t, err, ErrMissingLayer)
}

func TestFieldIndexCaseInsensitive(t *testing.T) {
	l := &Layer{Fields: []string{"CODIGO", "Nombre"}}
	assert.Equal(t, 0, l.FieldIndex("codigo"))
	assert.Equal(t, 1, l.FieldIndex("NOMBRE"))
	assert.Equal(t, -1, l.FieldIndex("ausente"))
}

func TestValuesOutOfRangeField(t *testing.T) {
	l := &Layer{
		Fields: []string{"a"},
		Rows:   [][]string{{"x"}, {"y"}},
	}
	assert.Equal(t, []string{"x", "y"}, l.Values(0))
	assert.Equal(t, []string{"", ""}, l.Values(5))
	assert.Equal(t, []string{"", ""}, l.Values(-1))
}

func TestShapeToGeomPolygon(t *testing.T) {
	square := &shp.Polygon{
		NumParts: 1,
		Parts:    []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 0},
		},
	}
	g := shapeToGeom(square)
	mp, ok := g.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestShapeToGeomUnsupported(t *testing.T) {
	assert.Nil(t, shapeToGeom(&shp.Null{}))
}
