package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrodatalab/upa-access/internal/access"
	"github.com/agrodatalab/upa-access/internal/export"
	"github.com/agrodatalab/upa-access/internal/store"
)

var regionsRunID string

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Export stored region mean distances for a run",
	Long:  "Reads the per-municipality mean distances recorded for a run (latest by default) and writes them as a CSV table.",
	RunE:  runRegions,
}

func init() {
	regionsCmd.Flags().StringVar(&regionsRunID, "run", "", "run id to export (defaults to the most recent run)")
	rootCmd.AddCommand(regionsCmd)
}

func runRegions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := zap.L().With(zap.String("component", "regions"))

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	runID := regionsRunID
	if runID == "" {
		runs, err := st.ListRuns(ctx, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return eris.New("no recorded runs; run compute first")
		}
		runID = runs[0].ID
	}

	records, err := st.ListRegionMeans(ctx, runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return eris.Errorf("run %s has no region means; the manifest may not set a region column", runID)
	}

	// Regroup the long-form records per layer, keeping store order.
	means := make(map[string][]access.RegionMean)
	var layerOrder []string
	for _, r := range records {
		if _, ok := means[r.Layer]; !ok {
			layerOrder = append(layerOrder, r.Layer)
		}
		means[r.Layer] = append(means[r.Layer], access.RegionMean{
			RegionID:   r.RegionID,
			MeanMeters: r.MeanMeters,
			Origins:    r.Origins,
		})
	}

	path := filepath.Join(cfg.Output.Dir, "distancias_por_municipio.csv")
	if err := export.WriteRegionMeansCSV(path, means, layerOrder); err != nil {
		return err
	}

	log.Info("region means exported",
		zap.String("run_id", runID),
		zap.String("path", path),
		zap.Int("rows", len(records)),
	)
	return nil
}
