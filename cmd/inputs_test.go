package main

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrodatalab/upa-access/internal/config"
)

func TestBuildEngine(t *testing.T) {
	for _, strategy := range []string{"dense", "indexed"} {
		engine, err := buildEngine(config.EngineConfig{Strategy: strategy, BatchSize: 100, Workers: 2})
		require.NoError(t, err, strategy)
		assert.NotNil(t, engine)
	}

	_, err := buildEngine(config.EngineConfig{Strategy: "quadtree"})
	require.Error(t, err)
}

func TestLoadInputsMissingOriginsIsFatal(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "layers.yaml")
	content := `
origins:
  name: upas
  path: ` + filepath.Join(dir, "missing.shp") + `
facilities:
  - name: colegios
    path: ` + filepath.Join(dir, "colegios.shp") + `
`
	require.NoError(t, os.WriteFile(manifest, []byte(content), 0o644))

	_, _, _, err := loadInputs(manifest)
	require.Error(t, err)
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/runs?limit=25&offset=abc", nil)
	assert.Equal(t, 25, queryInt(r, "limit", 50))
	assert.Equal(t, 0, queryInt(r, "offset", 0))
	assert.Equal(t, 7, queryInt(r, "absent", 7))
}
