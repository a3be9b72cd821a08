package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SIMLINT_SIMULATION_SECONDS",
		"SIMLINT_GAP_TOLERANCE",
		"SIMLINT_SCAN_WORKERS",
		"SIMLINT_LOG_LEVEL",
		"SIMLINT_OUT_DIR",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "simlint" {
		t.Errorf("expected Name=simlint, got %s", cfg.Name)
	}
	if cfg.Simulation.Seconds != 30 {
		t.Errorf("expected 30s window, got %g", cfg.Simulation.Seconds)
	}
	if cfg.Scan.MaxFiles != 50000 {
		t.Errorf("expected MaxFiles=50000, got %d", cfg.Scan.MaxFiles)
	}
	require.NoError(t, cfg.Validate())
}

func TestConfig_LoadMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Simulation.Seconds = 60
	cfg.Scan.IgnorePatterns = []string{"legacy"}
	cfg.Logging.Categories = map[string]bool{"watch": false}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60.0, loaded.Simulation.Seconds)
	assert.Equal(t, []string{"legacy"}, loaded.Scan.IgnorePatterns)
	assert.False(t, loaded.Logging.IsCategoryEnabled("watch"))
	assert.True(t, loaded.Logging.IsCategoryEnabled("scan"))
}

func TestConfig_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  gap_tolerance: 0.1\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.Simulation.GapTolerance)
	assert.Equal(t, 30.0, cfg.Simulation.Seconds)
	assert.Equal(t, "out", cfg.Output.Dir)
}

func TestConfig_LoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan: [unterminated"), 0644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SIMLINT_SIMULATION_SECONDS", "12.5")
	t.Setenv("SIMLINT_GAP_TOLERANCE", "not-a-number")
	t.Setenv("SIMLINT_SCAN_WORKERS", "3")
	t.Setenv("SIMLINT_LOG_LEVEL", "debug")
	t.Setenv("SIMLINT_OUT_DIR", "/tmp/simlint-out")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, 12.5, cfg.Simulation.Seconds)
	assert.Equal(t, 0.05, cfg.Simulation.GapTolerance, "unparseable override is ignored")
	assert.Equal(t, 3, cfg.Scan.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join("/tmp/simlint-out", "scan.sqlite"), cfg.DatabasePath())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero window", func(c *Config) { c.Simulation.Seconds = 0 }, "simulation.seconds"},
		{"huge window", func(c *Config) { c.Simulation.Seconds = MaxSimulationSeconds + 1 }, "simulation.seconds"},
		{"zero tolerance", func(c *Config) { c.Simulation.GapTolerance = 0 }, "gap_tolerance"},
		{"no workers", func(c *Config) { c.Scan.Workers = 0 }, "scan.workers"},
		{"inverted band", func(c *Config) { c.Anomaly.RatioHigh = 0.5 }, "ratio band"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging format"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui theme"},
		{"no output", func(c *Config) { c.Output.Dir = "" }, "output dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 500*time.Millisecond, cfg.GetWatchDebounce())

	cfg.Watch.Debounce = "2s"
	assert.Equal(t, 2*time.Second, cfg.GetWatchDebounce())

	cfg.Watch.Debounce = "soon"
	assert.Equal(t, 500*time.Millisecond, cfg.GetWatchDebounce())

	assert.Equal(t, filepath.Join("out", "scan.sqlite"), cfg.DatabasePath())
}
