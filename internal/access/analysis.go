package access

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agrodatalab/upa-access/internal/geometry"
	"github.com/agrodatalab/upa-access/internal/layer"
	"github.com/agrodatalab/upa-access/internal/nearest"
)

// OriginSet is an origin layer normalized for distance computation: the
// extracted coordinates plus identifier and region attributes aligned with
// them. Entities the extractor skipped are excluded here and recorded in
// Ext.Skipped.
type OriginSet struct {
	Layer   *layer.Layer
	Ext     geometry.Extraction
	IDs     []string
	Regions []string
}

// PrepareOrigins extracts origin coordinates and aligns origin id and region
// attributes with them. The id column comes from the manifest override or
// the identifier heuristic; the region column only from the manifest
// (a region is a pass-through attribute, never derived).
func PrepareOrigins(ref layer.Ref, l *layer.Layer) (*OriginSet, error) {
	if l.Len() == 0 {
		return nil, eris.Errorf("access: origin layer %s is empty", l.Name)
	}

	ext := geometry.Extract(l.Geoms)
	logSkipped(l.Name, ext.Skipped)
	if len(ext.Coords) == 0 {
		return nil, eris.Errorf("access: origin layer %s has no usable geometries", l.Name)
	}

	idCol := -1
	if ref.IDColumn != "" {
		idCol = l.FieldIndex(ref.IDColumn)
	}
	if idCol < 0 {
		idCol = ResolveColumns(l.Fields).ID
	}
	regionCol := -1
	if ref.RegionColumn != "" {
		regionCol = l.FieldIndex(ref.RegionColumn)
	}

	allIDs := l.Values(idCol)
	var allRegions []string
	if regionCol >= 0 {
		allRegions = l.Values(regionCol)
	}

	os := &OriginSet{Layer: l, Ext: ext}
	os.IDs = make([]string, len(ext.Coords))
	os.Regions = make([]string, len(ext.Coords))
	for i, src := range ext.Source {
		os.IDs[i] = allIDs[src]
		if allRegions != nil {
			os.Regions[i] = allRegions[src]
		}
	}
	return os, nil
}

// FacilityInput pairs a manifest entry with its loaded layer.
type FacilityInput struct {
	Ref   layer.Ref
	Layer *layer.Layer
}

// LayerOutcome is the result of one facility layer's computation. Err is set
// for per-layer failures (for example an empty layer); other layers in the
// same run are unaffected.
type LayerOutcome struct {
	Ref   layer.Ref
	Table Table
	Stats Stats
	Err   error
}

// Analysis runs the distance engine once per facility layer against a fixed
// origin set. The per-layer loop is configuration, not a separate code path
// per service type.
type Analysis struct {
	engine *nearest.Engine
	log    *zap.Logger
}

// NewAnalysis creates an Analysis around a configured engine.
func NewAnalysis(engine *nearest.Engine) *Analysis {
	return &Analysis{
		engine: engine,
		log:    zap.L().With(zap.String("component", "access")),
	}
}

// Run computes nearest-facility distances for every facility layer. It
// returns one outcome per input layer, in input order. A failed layer yields
// an outcome with Err set and processing continues; only context
// cancellation aborts the whole run.
func (a *Analysis) Run(ctx context.Context, origins *OriginSet, facilities []FacilityInput) ([]LayerOutcome, error) {
	outcomes := make([]LayerOutcome, 0, len(facilities))

	for _, f := range facilities {
		if err := ctx.Err(); err != nil {
			return outcomes, eris.Wrap(err, "access: run interrupted")
		}

		outcome := a.runLayer(ctx, origins, f)
		if outcome.Err != nil {
			a.log.Error("facility layer failed",
				zap.String("layer", f.Layer.Name),
				zap.Error(outcome.Err),
			)
		} else {
			a.log.Info("facility layer complete",
				zap.String("layer", f.Layer.Name),
				zap.Int("origins", len(outcome.Table.Rows)),
				zap.Float64("mean_meters", outcome.Stats.Mean),
				zap.Float64("median_meters", outcome.Stats.Median),
			)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (a *Analysis) runLayer(ctx context.Context, origins *OriginSet, f FacilityInput) LayerOutcome {
	outcome := LayerOutcome{Ref: f.Ref}

	ext := geometry.Extract(f.Layer.Geoms)
	logSkipped(f.Layer.Name, ext.Skipped)

	matches, err := a.engine.Nearest(ctx, origins.Ext.Coords, ext.Coords)
	if err != nil {
		outcome.Err = eris.Wrapf(err, "access: layer %s", f.Layer.Name)
		return outcome
	}

	// Matches index the extracted facility coordinates; map them back to
	// facility layer rows before joining attributes.
	for i := range matches {
		matches[i].Facility = ext.Source[matches[i].Facility]
	}

	outcome.Table = Assemble(f.Ref, f.Layer, origins.IDs, origins.Regions, matches)
	if outcome.Table.Columns.Fallback {
		a.log.Warn("column heuristic fell back to positional columns",
			zap.String("layer", f.Layer.Name),
			zap.Strings("fields", f.Layer.Fields),
		)
	}

	distances := make([]float64, len(outcome.Table.Rows))
	for i, row := range outcome.Table.Rows {
		distances[i] = row.DistanceMeters
	}
	outcome.Stats = Summarize(distances)
	return outcome
}

// DistanceColumn is the export column name for one facility layer.
func DistanceColumn(layerName string) string {
	return fmt.Sprintf("distance_to_%s_meters", layerName)
}

func logSkipped(layerName string, skipped []geometry.Skipped) {
	for _, s := range skipped {
		zap.L().Warn("skipped unsupported geometry",
			zap.String("component", "access"),
			zap.String("layer", layerName),
			zap.Int("source_index", s.Index),
			zap.Error(s.Err),
		)
	}
}
