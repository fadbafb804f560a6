// Package access assembles nearest-facility matches into per-origin result
// tables and region-level aggregates.
package access

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agrodatalab/upa-access/internal/layer"
	"github.com/agrodatalab/upa-access/internal/nearest"
)

// Keyword lists for identifier-like and name-like attribute columns. The
// census shapefiles mix Spanish and English field names.
var (
	idKeywords   = []string{"id", "codigo", "cod"}
	nameKeywords = []string{"nombre", "name", "nom"}
)

// Columns is the resolved identifier/name column pair for a facility layer.
// Fallback is set when the heuristic found no keyword match and fell back to
// positional columns; the assembler proceeds, it never fails on this.
type Columns struct {
	ID       int
	Name     int
	Fallback bool
}

// ResolveColumns picks identifier and name columns from a field list.
// Fields are scanned in order after lowercasing and accent folding
// ("Código" matches "codigo"); the first field containing a keyword wins,
// which keeps the policy deterministic across layers. With no match, the
// identifier falls back to the first column and the name to the second (or
// the first when there is only one).
func ResolveColumns(fields []string) Columns {
	cols := Columns{ID: -1, Name: -1}

	for i, f := range fields {
		n := normalizeField(f)
		if cols.ID < 0 && containsAny(n, idKeywords) {
			cols.ID = i
		}
		if cols.Name < 0 && i != cols.ID && containsAny(n, nameKeywords) {
			cols.Name = i
		}
	}

	if cols.ID < 0 {
		cols.ID = 0
		cols.Fallback = true
	}
	if cols.Name < 0 {
		cols.Name = min(1, len(fields)-1)
		cols.Fallback = true
	}
	return cols
}

// normalizeField lowercases a field name and strips diacritics.
func normalizeField(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// DistanceRow is one origin's nearest-facility result for one layer.
type DistanceRow struct {
	OriginID       string
	RegionID       string
	FacilityID     string
	FacilityName   string
	DistanceMeters float64
}

// Table holds the assembled per-origin results for one facility layer.
type Table struct {
	Layer   string
	Columns Columns
	Rows    []DistanceRow
}

// Assemble joins matches back to facility identifiers and names. originIDs
// and regionIDs are aligned with matches (one entry per extracted origin
// coordinate). The facility columns come from ref overrides when set,
// otherwise from the heuristic over the facility layer's fields.
func Assemble(ref layer.Ref, facilities *layer.Layer, originIDs, regionIDs []string, matches []nearest.Match) Table {
	cols := resolveWithOverrides(ref, facilities)

	t := Table{
		Layer:   facilities.Name,
		Columns: cols,
		Rows:    make([]DistanceRow, len(matches)),
	}
	ids := facilities.Values(cols.ID)
	names := facilities.Values(cols.Name)

	for i, m := range matches {
		row := DistanceRow{DistanceMeters: m.Distance}
		if i < len(originIDs) {
			row.OriginID = originIDs[i]
		}
		if i < len(regionIDs) {
			row.RegionID = regionIDs[i]
		}
		if m.Facility >= 0 && m.Facility < len(ids) {
			row.FacilityID = ids[m.Facility]
			row.FacilityName = names[m.Facility]
		}
		t.Rows[i] = row
	}
	return t
}

// resolveWithOverrides applies manifest column overrides before the
// heuristic. An override naming an absent field falls through to the
// heuristic for that column.
func resolveWithOverrides(ref layer.Ref, l *layer.Layer) Columns {
	cols := ResolveColumns(l.Fields)
	if ref.IDColumn != "" {
		if i := l.FieldIndex(ref.IDColumn); i >= 0 {
			cols.ID = i
			cols.Fallback = false
		}
	}
	if ref.NameColumn != "" {
		if i := l.FieldIndex(ref.NameColumn); i >= 0 {
			cols.Name = i
		}
	}
	return cols
}
