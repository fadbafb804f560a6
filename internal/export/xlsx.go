package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/agrodatalab/upa-access/internal/access"
)

// WriteDistancesXLSX writes one workbook with a per-layer sheet of assembled
// results (origin, region, nearest facility id/name, distance) and, when
// region means are present, a final "regiones" sheet.
func WriteDistancesXLSX(path string, outcomes []access.LayerOutcome, means map[string][]access.RegionMean) error {
	file := xlsx.NewFile()

	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		sheet, err := file.AddSheet(o.Table.Layer)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", o.Table.Layer)
		}

		header := sheet.AddRow()
		for _, h := range []string{"origin_id", "region_id", "facility_id", "facility_name", "distance_meters"} {
			header.AddCell().SetString(h)
		}

		for _, row := range o.Table.Rows {
			r := sheet.AddRow()
			r.AddCell().SetString(row.OriginID)
			r.AddCell().SetString(row.RegionID)
			r.AddCell().SetString(row.FacilityID)
			r.AddCell().SetString(row.FacilityName)
			r.AddCell().SetFloat(row.DistanceMeters)
		}
	}

	if len(means) > 0 {
		sheet, err := file.AddSheet("regiones")
		if err != nil {
			return eris.Wrap(err, "export: add regiones sheet")
		}

		header := sheet.AddRow()
		for _, h := range []string{"layer", "region_id", "mean_distance_meters", "origins"} {
			header.AddCell().SetString(h)
		}

		for _, o := range outcomes {
			if o.Err != nil {
				continue
			}
			for _, m := range means[o.Table.Layer] {
				r := sheet.AddRow()
				r.AddCell().SetString(o.Table.Layer)
				r.AddCell().SetString(m.RegionID)
				r.AddCell().SetFloat(m.MeanMeters)
				r.AddCell().SetInt(m.Origins)
			}
		}
	}

	if len(file.Sheets) == 0 {
		return eris.New("export: no successful layers to write")
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
