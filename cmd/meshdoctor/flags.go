package main

import (
	"github.com/spf13/cobra"

	"meshdoctor/internal/config"
)

// registerPipelineFlags declares the flags shared by run and batch.
func registerPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("visualize", false, "paint problem meshes and emit snapshots")
	f.Bool("autofix", false, "apply corrective translations to overlapping parts")
	f.Int("iterations", 0, "autofix iteration budget (0 = detect only)")
	f.Bool("autofix-verbose", false, "log every applied correction")
	f.Float64("autofix-safety-margin", 2.0, "extra separation per correction, millimeters")
	f.String("history-db", "", "sqlite file recording run history")
	f.String("engine-url", "", "geometry engine bridge endpoint")
	f.String("artifact-dir", "", "directory receiving a JSON report per run")
}

// applyPipelineFlags overrides config values with flags the user
// actually set; untouched flags keep the file/default value.
func applyPipelineFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("visualize") {
		cfg.Visualize, _ = f.GetBool("visualize")
	}
	if f.Changed("autofix") {
		cfg.Autofix, _ = f.GetBool("autofix")
	}
	if f.Changed("iterations") {
		cfg.Iterations, _ = f.GetInt("iterations")
	}
	if f.Changed("autofix-verbose") {
		cfg.AutofixVerbose, _ = f.GetBool("autofix-verbose")
	}
	if f.Changed("autofix-safety-margin") {
		cfg.SafetyMarginMM, _ = f.GetFloat64("autofix-safety-margin")
	}
	if f.Changed("history-db") {
		cfg.HistoryDB, _ = f.GetString("history-db")
	}
	if f.Changed("engine-url") {
		cfg.EngineURL, _ = f.GetString("engine-url")
	}
	if f.Changed("artifact-dir") {
		cfg.ArtifactDir, _ = f.GetString("artifact-dir")
	}
}
