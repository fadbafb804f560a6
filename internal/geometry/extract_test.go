package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestExtractPoint(t *testing.T) {
	ext := Extract([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{100, 200}),
	})

	require.Len(t, ext.Coords, 1)
	assert.Equal(t, Coord{X: 100, Y: 200}, ext.Coords[0])
	assert.Equal(t, []int{0}, ext.Source)
	assert.Empty(t, ext.Skipped)
}

func TestExtractMultiPointUsesFirstMember(t *testing.T) {
	mp := geom.NewMultiPointFlat(geom.XY, []float64{0, 0, 10, 10, 20, 20})
	ext := Extract([]geom.T{mp})

	require.Len(t, ext.Coords, 1)
	assert.Equal(t, Coord{X: 0, Y: 0}, ext.Coords[0])
}

func TestExtractPolygonCentroid(t *testing.T) {
	poly := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 2, 0, 2, 2, 0, 2, 0, 0}, []int{10})
	ext := Extract([]geom.T{poly})

	require.Len(t, ext.Coords, 1)
	assert.InDelta(t, 1.0, ext.Coords[0].X, 1e-9)
	assert.InDelta(t, 1.0, ext.Coords[0].Y, 1e-9)
}

func TestExtractSkipsUnsupported(t *testing.T) {
	ext := Extract([]geom.T{
		geom.NewPointFlat(geom.XY, []float64{1, 1}),
		nil,
		geom.NewMultiPoint(geom.XY),
		geom.NewPointFlat(geom.XY, []float64{2, 2}),
	})

	require.Len(t, ext.Coords, 2)
	assert.Equal(t, []int{0, 3}, ext.Source)

	require.Len(t, ext.Skipped, 2)
	assert.Equal(t, 1, ext.Skipped[0].Index)
	assert.Equal(t, 2, ext.Skipped[1].Index)
	for _, s := range ext.Skipped {
		assert.ErrorIs(t, s.Err, ErrUnsupportedGeometry)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	ext := Extract(nil)
	assert.Empty(t, ext.Coords)
	assert.Empty(t, ext.Source)
	assert.Empty(t, ext.Skipped)
}
