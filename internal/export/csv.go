// Package export writes analysis results as CSV and XLSX tables.
package export

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/agrodatalab/upa-access/internal/access"
)

// WriteDistancesCSV writes the wide per-origin table: one row per extracted
// origin, with origin id, region id, coordinates, and one
// distance_to_<layer>_meters column per successfully computed layer. Failed
// layers contribute no column.
func WriteDistancesCSV(path string, origins *access.OriginSet, outcomes []access.LayerOutcome) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)

	header := []string{"origin_id", "region_id", "x_coord", "y_coord"}
	var ok []access.LayerOutcome
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		ok = append(ok, o)
		header = append(header, access.DistanceColumn(o.Table.Layer))
	}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	for i := range origins.Ext.Coords {
		record := []string{
			origins.IDs[i],
			origins.Regions[i],
			formatFloat(origins.Ext.Coords[i].X),
			formatFloat(origins.Ext.Coords[i].Y),
		}
		for _, o := range ok {
			record = append(record, formatFloat(o.Table.Rows[i].DistanceMeters))
		}
		if err := w.Write(record); err != nil {
			return eris.Wrapf(err, "export: write row %d", i)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}
	return nil
}

// WriteRegionMeansCSV writes region aggregates in long form: one row per
// (layer, region) pair.
func WriteRegionMeansCSV(path string, means map[string][]access.RegionMean, layerOrder []string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write([]string{"layer", "region_id", "mean_distance_meters", "origins"}); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	for _, layer := range layerOrder {
		for _, m := range means[layer] {
			record := []string{
				layer,
				m.RegionID,
				formatFloat(m.MeanMeters),
				strconv.Itoa(m.Origins),
			}
			if err := w.Write(record); err != nil {
				return eris.Wrapf(err, "export: write region row for %s", m.RegionID)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}
	return nil
}

// formatFloat renders distances and coordinates with two decimals, matching
// the published census tables. Non-finite values render empty.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
