package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"meshdoctor/internal/batch"
	"meshdoctor/internal/config"
	"meshdoctor/internal/engine"
	"meshdoctor/internal/engine/bridge"
	"meshdoctor/internal/ir"
	"meshdoctor/internal/types"
)

var batchCmd = &cobra.Command{
	Use:   "batch <input-dir> [output-dir]",
	Short: "Debug every scene in a directory",
	Long: `Run the debug pipeline over every *.json IR document in a directory
and write a CSV summary. Individual file failures become error rows;
the batch itself only fails when the directory is unreadable.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyPipelineFlags(cmd, cfg)
		f := cmd.Flags()
		if f.Changed("workers") {
			cfg.Workers, _ = f.GetInt("workers")
		}
		if f.Changed("snapshot-scene-dir") {
			cfg.SnapshotSceneDir, _ = f.GetString("snapshot-scene-dir")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := ensureIsolatedWorkers(cfg); err != nil {
			return err
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		inputDir := args[0]
		outputDir := inputDir
		if len(args) == 2 {
			outputDir = args[1]
		}

		// Every input talks to the same engine URL, so sessions share
		// one scene. ensureIsolatedWorkers keeps them sequential.
		factory := func(ctx context.Context, source string, doc *ir.Document) (engine.Session, error) {
			return bridge.New(cfg.EngineURL), nil
		}
		rows, err := batch.New(cfg, logger, store, factory).Run(cmd.Context(), inputDir)
		if err != nil {
			return err
		}

		summaryPath := filepath.Join(outputDir, batch.SummaryFileName)
		if err := batch.WriteSummary(summaryPath, rows); err != nil {
			return err
		}

		printBatchSummary(rows, summaryPath)
		return nil
	},
}

func init() {
	registerPipelineFlags(batchCmd)
	f := batchCmd.Flags()
	f.Int("workers", 1, "parallel debug workers (requires per-file engine sessions; the HTTP bridge supports 1)")
	f.String("snapshot-scene-dir", "", "directory receiving per-file scene/image snapshots")
	rootCmd.AddCommand(batchCmd)
}

// ensureIsolatedWorkers rejects parallelism the bridge cannot honor:
// every batch session mutates the same engine scene, so concurrent
// pipelines would fix each other's overlaps.
func ensureIsolatedWorkers(cfg *config.Config) error {
	if cfg.Workers > 1 {
		return types.NewConfigError(
			"workers > 1 requires per-file engine sessions; the HTTP bridge drives a single shared scene")
	}
	return nil
}

func printBatchSummary(rows []types.BatchRow, summaryPath string) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	okCount := 0
	for _, row := range rows {
		if row.Err == nil {
			okCount++
		}
	}

	fmt.Printf("\nProcessed %d files: %s ok", len(rows), green(fmt.Sprintf("%d", okCount)))
	if failed := len(rows) - okCount; failed > 0 {
		fmt.Printf(", %s failed", red(fmt.Sprintf("%d", failed)))
	}
	fmt.Println()

	for _, row := range rows {
		if row.Err != nil {
			fmt.Printf("  %s %s: %v\n", red("✗"), row.FileName, row.Err)
			continue
		}
		fmt.Printf("  %s %s %s\n", green("✓"), row.FileName,
			gray(fmt.Sprintf("score=%.6f problems=%d fixes=%d",
				row.Report.Score, len(row.Report.Problems), row.Report.FixesApplied)))
	}
	fmt.Printf("\nSummary written to %s\n", summaryPath)
}
