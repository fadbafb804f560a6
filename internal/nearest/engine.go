// Package nearest computes, for every origin coordinate, the nearest member
// of a facility coordinate set and the planar Euclidean distance to it.
//
// Two interchangeable strategies share one contract: a dense pairwise
// reduction and an R-tree indexed query. Both assume origins and facilities
// are expressed in the same planar, meter-based coordinate system;
// reprojection is the caller's responsibility. Distances are straight-line
// sqrt(dx^2+dy^2) in the projected unit, not geodesic.
package nearest

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agrodatalab/upa-access/internal/batch"
	"github.com/agrodatalab/upa-access/internal/geometry"
)

// ErrNoFacilities is returned when the facility set is empty. An empty layer
// is a per-layer failure, never a silent infinite distance.
var ErrNoFacilities = eris.New("nearest: no facilities available")

// Match is the nearest facility for one origin: the index into the facility
// coordinate set and the distance to it in meters.
type Match struct {
	Facility int
	Distance float64
}

// Strategy builds a Searcher over a facility coordinate set. Build is called
// once per engine run; its cost is amortized across all origin batches.
type Strategy interface {
	Name() string
	Build(facilities []geometry.Coord) (Searcher, error)
}

// Searcher resolves nearest facilities for a slice of origins, writing one
// Match per origin into out. Implementations are read-only after Build and
// safe for concurrent use across disjoint out slices.
type Searcher interface {
	Search(origins []geometry.Coord, out []Match) error
}

// Engine batches the origin set and runs a Strategy over each batch. Each
// batch owns a disjoint slice of the result array, so batches may run
// concurrently with no shared mutable state beyond the read-only Searcher.
type Engine struct {
	strategy  Strategy
	batchSize int
	workers   int
	log       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBatchSize caps the number of origins handed to the strategy at once.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithWorkers sets the number of origin batches processed concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an Engine. Defaults: 10000 origins per batch, sequential
// batch processing, global logger.
func New(strategy Strategy, opts ...Option) *Engine {
	e := &Engine{
		strategy:  strategy,
		batchSize: 10000,
		workers:   1,
		log:       zap.L().With(zap.String("component", "nearest")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Nearest returns one Match per origin, in origin order. It fails with
// ErrNoFacilities when the facility set is empty. An empty origin set yields
// an empty result.
func (e *Engine) Nearest(ctx context.Context, origins, facilities []geometry.Coord) ([]Match, error) {
	if len(facilities) == 0 {
		return nil, eris.Wrapf(ErrNoFacilities, "strategy %s", e.strategy.Name())
	}
	if len(origins) == 0 {
		return []Match{}, nil
	}

	searcher, err := e.strategy.Build(facilities)
	if err != nil {
		return nil, eris.Wrapf(err, "nearest: build %s searcher", e.strategy.Name())
	}

	ranges, err := batch.Ranges(len(origins), e.batchSize)
	if err != nil {
		return nil, err
	}
	total := batch.Count(len(origins), e.batchSize)

	matches := make([]Match, len(origins))
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for r := range ranges {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := searcher.Search(origins[r.Start:r.End], matches[r.Start:r.End]); err != nil {
				return eris.Wrapf(err, "nearest: batch [%d, %d)", r.Start, r.End)
			}

			n := done.Add(1)
			if n%10 == 0 || n == int64(total) {
				e.log.Info("batch complete",
					zap.String("strategy", e.strategy.Name()),
					zap.Int("batch_start", r.Start),
					zap.Int("batch_end", r.End),
					zap.Float64("fraction_done", float64(n)/float64(total)),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}

// sqDist returns the squared Euclidean distance between two coordinates.
// Comparisons run on squared distances; the square root is taken once per
// final match.
func sqDist(a, b geometry.Coord) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}
