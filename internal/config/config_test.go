package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "scoring.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "data/input", cfg.Paths.Input)
	assert.Equal(t, "data/output", cfg.Paths.Output)
	assert.True(t, cfg.Proxy.RotationEnabled)
	assert.Equal(t, 50, cfg.Enrich.MaxConcurrent)
	assert.Equal(t, 10000, cfg.Enrich.BatchSize)
	assert.Equal(t, 30, cfg.Enrich.RequestTimeoutSecs)
	assert.Equal(t, 3, cfg.Enrich.MaxRetries)
	assert.InDelta(t, 100, cfg.Enrich.RequestsPerSecond, 0.001)
	assert.Equal(t, "https://fssp.gov.ru", cfg.Sources.FSSPBaseURL)
	assert.Equal(t, "https://fedresurs.ru/backend/companies", cfg.Sources.FedresursURL)
	assert.Equal(t, "https://rosreestr.gov.ru/api", cfg.Sources.RosreestrURL)
	assert.Equal(t, "https://api.courts.ru", cfg.Sources.CourtAPIURL)
	assert.Equal(t, "https://service.nalog.ru", cfg.Sources.TaxAPIURL)
	assert.InDelta(t, 250000, cfg.Scoring.MinDebtAmount, 0.001)
	assert.InDelta(t, 50, cfg.Scoring.MinScoreThreshold, 0.001)
	assert.Equal(t, 10000, cfg.Scoring.BatchSize)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost:5432/scoring
log:
  level: debug
  format: console
server:
  port: 9090
enrich:
  max_concurrent: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost:5432/scoring", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Enrich.MaxConcurrent)
	// Defaults still apply for unset values
	assert.Equal(t, 10000, cfg.Enrich.BatchSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SCORING_STORE_DRIVER", "sqlite")
	t.Setenv("SCORING_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("SCORING_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
