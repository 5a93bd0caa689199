// Package config loads the run configuration from YAML and merges it
// with command-line flags. Flags win; the file supplies defaults.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"meshdoctor/internal/types"
	"meshdoctor/internal/validate"
)

// Config is the full run configuration loaded from YAML.
type Config struct {
	// Visualize paints problem meshes and emits snapshot artifacts.
	Visualize bool `yaml:"visualize"`

	// Autofix enables the iterative overlap correction loop.
	Autofix bool `yaml:"autofix"`

	// Iterations bounds the autofix loop. Zero means detect-only.
	Iterations int `yaml:"iterations"`

	// AutofixVerbose logs every applied correction.
	AutofixVerbose bool `yaml:"autofix_verbose"`

	// SafetyMarginMM is added to each correction so separated parts end
	// up clear of each other, in millimeters.
	SafetyMarginMM float64 `yaml:"safety_margin_mm"`

	// SnapshotScenePath and SnapshotImagePath are single-run artifact
	// destinations. Empty skips the artifact.
	SnapshotScenePath string `yaml:"snapshot_scene_path,omitempty"`
	SnapshotImagePath string `yaml:"snapshot_image_path,omitempty"`

	// SnapshotSceneDir is the batch-mode artifact directory; each input
	// file gets artifacts named after it.
	SnapshotSceneDir string `yaml:"snapshot_scene_dir,omitempty"`

	// ArtifactDir, when set, receives a JSON report per run.
	ArtifactDir string `yaml:"artifact_dir,omitempty"`

	// HistoryDB is the sqlite file recording run history. Empty disables
	// history.
	HistoryDB string `yaml:"history_db,omitempty"`

	// Workers is the batch-mode concurrency. Defaults to 1.
	Workers int `yaml:"workers"`

	// EngineURL is the HTTP endpoint of the geometry engine bridge.
	EngineURL string `yaml:"engine_url"`

	// Thresholds tune the validation rules.
	Thresholds Thresholds `yaml:"thresholds"`
}

// Thresholds mirrors validate.Params in YAML form.
type Thresholds struct {
	// OverlapEpsM3 is the overlap volume cutoff, cubic meters.
	OverlapEpsM3 float64 `yaml:"overlap_eps_m3"`

	// BendEpsM is the bbox-delta bend evidence threshold, meters.
	BendEpsM float64 `yaml:"bend_eps_m"`

	// ModEffectEpsM is the modifier-effect bbox threshold, meters.
	ModEffectEpsM float64 `yaml:"mod_effect_eps_m"`

	// ModEffectVertsEps is the modifier-effect vertex-count threshold.
	ModEffectVertsEps int `yaml:"mod_effect_verts_eps"`

	// ClearanceEpsM is the minimum slat/frame Z clearance, meters.
	ClearanceEpsM float64 `yaml:"clearance_eps_m"`

	// JointAllowanceMM is the joint-contact overlap allowance.
	JointAllowanceMM float64 `yaml:"joint_allowance_mm"`
}

// Default returns the production defaults.
func Default() *Config {
	params := validate.DefaultParams()
	return &Config{
		Visualize:      false,
		Autofix:        false,
		Iterations:     10,
		SafetyMarginMM: 2.0,
		Workers:        1,
		EngineURL:      "http://127.0.0.1:8723",
		Thresholds: Thresholds{
			OverlapEpsM3:      params.OverlapEpsM3,
			BendEpsM:          params.BendEpsM,
			ModEffectEpsM:     params.ModEffectEpsM,
			ModEffectVertsEps: params.ModEffectVertsEps,
			ClearanceEpsM:     params.ClearanceEpsM,
			JointAllowanceMM:  params.JointAllowanceMM,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is a
// ConfigError; callers that treat the file as optional should stat it
// first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewConfigError("reading config file %s: %v", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, types.NewConfigError("parsing config file %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot honor.
func (c *Config) Validate() error {
	if c.Iterations < 0 {
		return types.NewConfigError("iterations must be >= 0, got %d", c.Iterations)
	}
	if c.SafetyMarginMM < 0 {
		return types.NewConfigError("safety_margin_mm must be >= 0, got %g", c.SafetyMarginMM)
	}
	if c.Workers < 1 {
		return types.NewConfigError("workers must be >= 1, got %d", c.Workers)
	}
	if c.EngineURL == "" {
		return types.NewConfigError("engine_url must not be empty")
	}
	if c.Thresholds.OverlapEpsM3 < 0 || c.Thresholds.BendEpsM < 0 ||
		c.Thresholds.ModEffectEpsM < 0 || c.Thresholds.ClearanceEpsM < 0 ||
		c.Thresholds.JointAllowanceMM < 0 {
		return types.NewConfigError("thresholds must be >= 0")
	}
	return nil
}

// SafetyMarginM converts the configured margin to meters.
func (c *Config) SafetyMarginM() float64 {
	return c.SafetyMarginMM / 1000.0
}

// Params converts the YAML thresholds to validator parameters.
func (c *Config) Params() validate.Params {
	return validate.Params{
		OverlapEpsM3:      c.Thresholds.OverlapEpsM3,
		BendEpsM:          c.Thresholds.BendEpsM,
		ModEffectEpsM:     c.Thresholds.ModEffectEpsM,
		ModEffectVertsEps: c.Thresholds.ModEffectVertsEps,
		ClearanceEpsM:     c.Thresholds.ClearanceEpsM,
		JointAllowanceMM:  c.Thresholds.JointAllowanceMM,
	}
}

// SaveDefault writes the default configuration to a file, as a starting
// point for editing.
func SaveDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return types.NewConfigError("marshaling config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &types.IOError{Path: path, Err: err}
	}
	return nil
}
