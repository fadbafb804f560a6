package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agrodatalab/upa-access/internal/access"
	"github.com/agrodatalab/upa-access/internal/config"
	"github.com/agrodatalab/upa-access/internal/layer"
	"github.com/agrodatalab/upa-access/internal/nearest"
)

// buildEngine constructs the distance engine for the configured strategy.
func buildEngine(cfg config.EngineConfig) (*nearest.Engine, error) {
	var strategy nearest.Strategy
	switch cfg.Strategy {
	case "dense":
		strategy = &nearest.Dense{FacilityBatch: cfg.FacilityBatchSize}
	case "indexed":
		strategy = &nearest.Indexed{Candidates: cfg.Candidates}
	default:
		return nil, eris.Errorf("unknown engine strategy %q", cfg.Strategy)
	}

	return nearest.New(strategy,
		nearest.WithBatchSize(cfg.BatchSize),
		nearest.WithWorkers(cfg.Workers),
	), nil
}

// loadInputs reads the manifest and loads every layer it names. A missing
// origins layer is fatal; missing facility layers are skipped with a warning
// so the rest of the run proceeds.
func loadInputs(manifestPath string) (*layer.Manifest, *access.OriginSet, []access.FacilityInput, error) {
	manifest, err := layer.LoadManifest(manifestPath)
	if err != nil {
		return nil, nil, nil, err
	}

	originLayer, err := layer.Load(manifest.Origins)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "load origins layer")
	}
	origins, err := access.PrepareOrigins(manifest.Origins, originLayer)
	if err != nil {
		return nil, nil, nil, err
	}

	var facilities []access.FacilityInput
	for _, ref := range manifest.Facilities {
		l, err := layer.Load(ref)
		if err != nil {
			if eris.Is(err, layer.ErrMissingLayer) {
				zap.L().Warn("facility layer missing, skipping",
					zap.String("layer", ref.Name),
					zap.String("path", ref.Path),
				)
				continue
			}
			return nil, nil, nil, eris.Wrapf(err, "load facility layer %s", ref.Name)
		}
		facilities = append(facilities, access.FacilityInput{Ref: ref, Layer: l})
	}
	if len(facilities) == 0 {
		return nil, nil, nil, eris.New("no facility layers could be loaded")
	}

	return manifest, origins, facilities, nil
}
