// Package layer loads named geometry collections with flat attribute tables
// from shapefiles, driven by a YAML manifest.
package layer

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrMissingLayer marks a named input layer that cannot be found. Missing
// origins are fatal for a run; missing facility layers are skipped with a
// warning.
var ErrMissingLayer = eris.New("layer: missing input layer")

// Ref names one input layer and where to find it. The column overrides are
// optional; when empty, identifier and name columns are resolved by the
// assembler's heuristic.
type Ref struct {
	Name         string `yaml:"name"`
	Path         string `yaml:"path"`
	IDColumn     string `yaml:"id_column,omitempty"`
	NameColumn   string `yaml:"name_column,omitempty"`
	RegionColumn string `yaml:"region_column,omitempty"`
}

// Manifest lists the origin layer and the facility layers of one analysis.
// All layers are expected to already be in the same planar, meter-based CRS;
// reprojection happens upstream of this tool.
type Manifest struct {
	Origins    Ref   `yaml:"origins"`
	Facilities []Ref `yaml:"facilities"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "layer: parse manifest %s", path)
	}

	if m.Origins.Name == "" || m.Origins.Path == "" {
		return nil, eris.New("layer: manifest must name an origins layer with a path")
	}
	if len(m.Facilities) == 0 {
		return nil, eris.New("layer: manifest lists no facility layers")
	}
	seen := make(map[string]bool, len(m.Facilities))
	for _, f := range m.Facilities {
		if f.Name == "" || f.Path == "" {
			return nil, eris.New("layer: every facility layer needs a name and a path")
		}
		if seen[f.Name] {
			return nil, eris.Errorf("layer: duplicate facility layer %q", f.Name)
		}
		seen[f.Name] = true
	}

	return &m, nil
}
