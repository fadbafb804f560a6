package nearest

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrodatalab/upa-access/internal/geometry"
)

func randomCoords(r *rand.Rand, n int) []geometry.Coord {
	coords := make([]geometry.Coord, n)
	for i := range coords {
		coords[i] = geometry.Coord{
			X: r.Float64() * 100000,
			Y: r.Float64() * 100000,
		}
	}
	return coords
}

// bruteforce is the trusted reference: full scan with strict-improvement
// updates, so ties resolve to the earliest facility index.
func bruteforce(origins, facilities []geometry.Coord) []Match {
	out := make([]Match, len(origins))
	for i, o := range origins {
		best := math.Inf(1)
		bestIdx := -1
		for j, f := range facilities {
			if d := sqDist(o, f); d < best {
				best = d
				bestIdx = j
			}
		}
		out[i] = Match{Facility: bestIdx, Distance: math.Sqrt(best)}
	}
	return out
}

func TestNearestEmptyFacilities(t *testing.T) {
	e := New(Dense{})
	_, err := e.Nearest(context.Background(), randomCoords(rand.New(rand.NewSource(1)), 3), nil)
	require.ErrorIs(t, err, ErrNoFacilities)
}

func TestNearestEmptyOrigins(t *testing.T) {
	e := New(Indexed{})
	matches, err := e.Nearest(context.Background(), nil, randomCoords(rand.New(rand.NewSource(1)), 3))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStrategiesMatchBruteforce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	origins := randomCoords(r, 300)
	facilities := randomCoords(r, 80)
	want := bruteforce(origins, facilities)

	strategies := []Strategy{
		Dense{},
		Dense{FacilityBatch: 7},
		Indexed{},
		Indexed{Candidates: 8},
	}
	for _, s := range strategies {
		t.Run(s.Name(), func(t *testing.T) {
			got, err := New(s).Nearest(context.Background(), origins, facilities)
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].Facility, got[i].Facility, "origin %d", i)
				assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-6, "origin %d", i)
			}
		})
	}
}

func TestBatchSizeInvariance(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	origins := randomCoords(r, 101)
	facilities := randomCoords(r, 40)

	want, err := New(Dense{}).Nearest(context.Background(), origins, facilities)
	require.NoError(t, err)

	for _, size := range []int{1, 7, 50, 101, 10000} {
		got, err := New(Dense{}, WithBatchSize(size)).Nearest(context.Background(), origins, facilities)
		require.NoError(t, err)
		assert.Equal(t, want, got, "batch size %d", size)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	origins := randomCoords(r, 500)
	facilities := randomCoords(r, 60)

	sequential, err := New(Indexed{}, WithBatchSize(37)).Nearest(context.Background(), origins, facilities)
	require.NoError(t, err)

	parallel, err := New(Indexed{}, WithBatchSize(37), WithWorkers(4)).Nearest(context.Background(), origins, facilities)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}

func TestTieBreakEarliestFacility(t *testing.T) {
	// Origin equidistant from both facilities.
	origins := []geometry.Coord{{X: 0, Y: 0}}
	facilities := []geometry.Coord{
		{X: 10, Y: 0},
		{X: -10, Y: 0},
	}

	for _, s := range []Strategy{Dense{}, Indexed{}} {
		got, err := New(s).Nearest(context.Background(), origins, facilities)
		require.NoError(t, err)
		assert.Equal(t, 0, got[0].Facility, s.Name())
		assert.InDelta(t, 10.0, got[0].Distance, 1e-9, s.Name())
	}
}

func TestAddingFacilityNeverIncreasesDistance(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	origins := randomCoords(r, 50)
	facilities := randomCoords(r, 20)
	extra := append(append([]geometry.Coord{}, facilities...), randomCoords(r, 5)...)

	before, err := New(Dense{}).Nearest(context.Background(), origins, facilities)
	require.NoError(t, err)
	after, err := New(Dense{}).Nearest(context.Background(), origins, extra)
	require.NoError(t, err)

	for i := range before {
		assert.LessOrEqual(t, after[i].Distance, before[i].Distance+1e-12, "origin %d", i)
	}
}

func TestNearestCancelledContext(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	origins := randomCoords(r, 100)
	facilities := randomCoords(r, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Dense{}, WithBatchSize(10)).Nearest(ctx, origins, facilities)
	require.Error(t, err)
}

func TestCoincidentOriginAndFacility(t *testing.T) {
	origins := []geometry.Coord{{X: 5, Y: 5}}
	facilities := []geometry.Coord{{X: 1, Y: 1}, {X: 5, Y: 5}}

	for _, s := range []Strategy{Dense{}, Indexed{}} {
		got, err := New(s).Nearest(context.Background(), origins, facilities)
		require.NoError(t, err)
		assert.Equal(t, 1, got[0].Facility, s.Name())
		assert.Zero(t, got[0].Distance, s.Name())
	}
}
