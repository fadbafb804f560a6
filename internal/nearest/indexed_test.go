package nearest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrodatalab/upa-access/internal/geometry"
)

func TestIndexedSingleFacility(t *testing.T) {
	searcher, err := Indexed{Candidates: 4}.Build([]geometry.Coord{{X: 3, Y: 4}})
	require.NoError(t, err)

	out := make([]Match, 1)
	require.NoError(t, searcher.Search([]geometry.Coord{{X: 0, Y: 0}}, out))
	assert.Equal(t, 0, out[0].Facility)
	assert.InDelta(t, 5.0, out[0].Distance, 1e-9)
}

func TestIndexedCandidateCapClamped(t *testing.T) {
	// More candidates requested than facilities exist.
	facilities := []geometry.Coord{{X: 1, Y: 1}, {X: 2, Y: 2}}
	searcher, err := Indexed{Candidates: 100}.Build(facilities)
	require.NoError(t, err)

	out := make([]Match, 1)
	require.NoError(t, searcher.Search([]geometry.Coord{{X: 0, Y: 0}}, out))
	assert.Equal(t, 0, out[0].Facility)
}

func TestIndexedMatchesDenseOnClusteredData(t *testing.T) {
	// Clustered points stress the tree structure more than uniform noise.
	r := rand.New(rand.NewSource(21))
	var facilities []geometry.Coord
	for c := 0; c < 5; c++ {
		cx, cy := r.Float64()*100000, r.Float64()*100000
		for i := 0; i < 30; i++ {
			facilities = append(facilities, geometry.Coord{
				X: cx + r.NormFloat64()*50,
				Y: cy + r.NormFloat64()*50,
			})
		}
	}
	origins := randomCoords(r, 200)

	denseSearch, err := Dense{}.Build(facilities)
	require.NoError(t, err)
	indexedSearch, err := Indexed{}.Build(facilities)
	require.NoError(t, err)

	want := make([]Match, len(origins))
	got := make([]Match, len(origins))
	require.NoError(t, denseSearch.Search(origins, want))
	require.NoError(t, indexedSearch.Search(origins, got))

	for i := range want {
		assert.Equal(t, want[i].Facility, got[i].Facility, "origin %d", i)
		assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-6, "origin %d", i)
	}
}
