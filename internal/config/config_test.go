package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/upa-access.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "indexed", cfg.Engine.Strategy)
	assert.Equal(t, 10000, cfg.Engine.BatchSize)
	assert.Equal(t, 1, cfg.Engine.Workers)
	assert.Equal(t, 4, cfg.Engine.Candidates)
	assert.Equal(t, "data", cfg.Output.Dir)
	assert.Equal(t, []string{"csv"}, cfg.Output.Formats)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
store:
  driver: postgres
  database_url: postgres://localhost/upa
engine:
  strategy: dense
  batch_size: 5000
  workers: 4
output:
  formats: [csv, xlsx]
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "dense", cfg.Engine.Strategy)
	assert.Equal(t, 5000, cfg.Engine.BatchSize)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, []string{"csv", "xlsx"}, cfg.Output.Formats)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Engine.Candidates)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("UPA_ACCESS_ENGINE_STRATEGY", "dense")
	t.Setenv("UPA_ACCESS_ENGINE_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dense", cfg.Engine.Strategy)
	assert.Equal(t, 8, cfg.Engine.Workers)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [not a map"), 0o644))
	t.Chdir(dir)

	_, err := Load()
	require.Error(t, err)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	require.Error(t, InitLogger(LogConfig{Level: "shout", Format: "json"}))
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "console"}))
}
