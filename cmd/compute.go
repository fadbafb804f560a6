package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrodatalab/upa-access/internal/access"
	"github.com/agrodatalab/upa-access/internal/export"
	"github.com/agrodatalab/upa-access/internal/store"
)

var (
	computeManifest string
	computeStrategy string
	computeNoStore  bool
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute nearest-facility distances for every layer in the manifest",
	RunE:  runCompute,
}

func init() {
	computeCmd.Flags().StringVar(&computeManifest, "manifest", "layers.yaml", "path to the layer manifest")
	computeCmd.Flags().StringVar(&computeStrategy, "strategy", "", "override the configured engine strategy (dense or indexed)")
	computeCmd.Flags().BoolVar(&computeNoStore, "no-store", false, "skip persisting results to the store")
	rootCmd.AddCommand(computeCmd)
}

func runCompute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := zap.L().With(zap.String("component", "compute"))

	engineCfg := cfg.Engine
	if computeStrategy != "" {
		engineCfg.Strategy = computeStrategy
	}

	manifest, origins, facilities, err := loadInputs(computeManifest)
	if err != nil {
		return err
	}
	log.Info("inputs loaded",
		zap.Int("origins", len(origins.Ext.Coords)),
		zap.Int("skipped_origins", len(origins.Ext.Skipped)),
		zap.Int("facility_layers", len(facilities)),
	)

	engine, err := buildEngine(engineCfg)
	if err != nil {
		return err
	}

	outcomes, err := access.NewAnalysis(engine).Run(ctx, origins, facilities)
	if err != nil {
		return err
	}

	failed := 0
	means := make(map[string][]access.RegionMean)
	var layerOrder []string
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			continue
		}
		layerOrder = append(layerOrder, o.Table.Layer)

		if manifest.Origins.RegionColumn != "" {
			distances := make([]float64, len(o.Table.Rows))
			for i, row := range o.Table.Rows {
				distances[i] = row.DistanceMeters
			}
			rm, err := access.AggregateByRegion(origins.Regions, distances)
			if err != nil {
				return err
			}
			means[o.Table.Layer] = rm
		}
	}
	if failed == len(outcomes) {
		return persistAndFail(ctx, log, engineCfg.Strategy, outcomes)
	}

	if !computeNoStore {
		if err := persistRun(ctx, log, computeManifest, engineCfg.Strategy, outcomes, means); err != nil {
			return err
		}
	}

	if err := writeExports(log, origins, outcomes, means, layerOrder); err != nil {
		return err
	}

	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		log.Info("layer summary",
			zap.String("layer", o.Table.Layer),
			zap.Int("origins", o.Stats.Count),
			zap.Float64("min_meters", o.Stats.Min),
			zap.Float64("max_meters", o.Stats.Max),
			zap.Float64("mean_meters", o.Stats.Mean),
			zap.Float64("median_meters", o.Stats.Median),
		)
	}
	return nil
}

// persistRun records the run and its per-layer results. The run is marked
// failed when any layer failed, so consumers can tell a partial result apart
// from a complete one.
func persistRun(ctx context.Context, log *zap.Logger, manifestPath, strategy string, outcomes []access.LayerOutcome, means map[string][]access.RegionMean) error {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run, err := st.CreateRun(ctx, manifestPath, strategy)
	if err != nil {
		return err
	}
	log.Info("run created", zap.String("run_id", run.ID), zap.String("strategy", strategy))

	status := store.RunStatusComplete
	for _, o := range outcomes {
		if o.Err != nil {
			status = store.RunStatusFailed
			continue
		}
		n, err := st.InsertDistances(ctx, run.ID, o.Table.Layer, o.Table.Rows)
		if err != nil {
			_ = st.FinishRun(ctx, run.ID, store.RunStatusFailed)
			return err
		}
		log.Info("distances stored", zap.String("layer", o.Table.Layer), zap.Int64("rows", n))

		if rm := means[o.Table.Layer]; len(rm) > 0 {
			if _, err := st.InsertRegionMeans(ctx, run.ID, o.Table.Layer, rm); err != nil {
				_ = st.FinishRun(ctx, run.ID, store.RunStatusFailed)
				return err
			}
		}
	}

	return st.FinishRun(ctx, run.ID, status)
}

// persistAndFail records a run where every layer failed, then reports the
// first layer error.
func persistAndFail(ctx context.Context, log *zap.Logger, strategy string, outcomes []access.LayerOutcome) error {
	if !computeNoStore {
		if st, err := store.Open(ctx, cfg.Store); err == nil {
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err == nil {
				if run, err := st.CreateRun(ctx, computeManifest, strategy); err == nil {
					_ = st.FinishRun(ctx, run.ID, store.RunStatusFailed)
				}
			}
		}
	}
	log.Error("all facility layers failed")
	return outcomes[0].Err
}

func writeExports(log *zap.Logger, origins *access.OriginSet, outcomes []access.LayerOutcome, means map[string][]access.RegionMean, layerOrder []string) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return err
	}

	if slices.Contains(cfg.Output.Formats, "csv") {
		path := filepath.Join(cfg.Output.Dir, "distancias_upa_servicios.csv")
		if err := export.WriteDistancesCSV(path, origins, outcomes); err != nil {
			return err
		}
		log.Info("distances exported", zap.String("path", path))

		if len(means) > 0 {
			path := filepath.Join(cfg.Output.Dir, "distancias_por_municipio.csv")
			if err := export.WriteRegionMeansCSV(path, means, layerOrder); err != nil {
				return err
			}
			log.Info("region means exported", zap.String("path", path))
		}
	}

	if slices.Contains(cfg.Output.Formats, "xlsx") {
		path := filepath.Join(cfg.Output.Dir, "distancias_upa_servicios.xlsx")
		if err := export.WriteDistancesXLSX(path, outcomes, means); err != nil {
			return err
		}
		log.Info("workbook exported", zap.String("path", path))
	}

	return nil
}
