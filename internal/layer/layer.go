package layer

import (
	"strings"

	"github.com/twpayne/go-geom"
)

// Layer is an in-memory geometry collection with a flat attribute table.
// Geoms and Rows are index-aligned; a nil geometry marks a shape the reader
// could not represent, which the coordinate extractor later skips. Layers
// are read-only for the duration of a run.
type Layer struct {
	Name   string
	Fields []string
	Geoms  []geom.T
	Rows   [][]string
}

// Len returns the number of entities in the layer.
func (l *Layer) Len() int { return len(l.Geoms) }

// FieldIndex returns the index of the named attribute field, matched
// case-insensitively, or -1 if absent.
func (l *Layer) FieldIndex(name string) int {
	for i, f := range l.Fields {
		if strings.EqualFold(f, name) {
			return i
		}
	}
	return -1
}

// Values returns the attribute column at the given field index, one value
// per entity.
func (l *Layer) Values(field int) []string {
	vals := make([]string, len(l.Rows))
	for i, row := range l.Rows {
		if field >= 0 && field < len(row) {
			vals[i] = row[field]
		}
	}
	return vals
}
