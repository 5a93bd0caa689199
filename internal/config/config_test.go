package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshdoctor/internal/types"
	"meshdoctor/internal/validate"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Autofix)
	assert.Equal(t, 10, cfg.Iterations)
	assert.Equal(t, 2.0, cfg.SafetyMarginMM)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, validate.DefaultParams(), cfg.Params())
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
autofix: true
iterations: 3
safety_margin_mm: 5
thresholds:
  bend_eps_m: 0.004
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Autofix)
	assert.Equal(t, 3, cfg.Iterations)
	assert.InDelta(t, 0.005, cfg.SafetyMarginM(), 1e-12)
	assert.Equal(t, 0.004, cfg.Thresholds.BendEpsM)
	// Unset keys keep their defaults.
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, validate.DefaultParams().OverlapEpsM3, cfg.Thresholds.OverlapEpsM3)
}

func TestLoadErrors(t *testing.T) {
	var cfgErr *types.ConfigError

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorAs(t, err, &cfgErr)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: [not a number"), 0o644))
	_, err = Load(path)
	require.ErrorAs(t, err, &cfgErr)

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: -2"), 0o644))
	_, err = Load(path)
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"negative iterations", func(c *Config) { c.Iterations = -1 }, false},
		{"negative margin", func(c *Config) { c.SafetyMarginMM = -0.5 }, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, false},
		{"empty engine url", func(c *Config) { c.EngineURL = "" }, false},
		{"negative threshold", func(c *Config) { c.Thresholds.BendEpsM = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSaveDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
