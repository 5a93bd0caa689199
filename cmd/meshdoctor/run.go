package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"meshdoctor/internal/engine/bridge"
	"meshdoctor/internal/ir"
	"meshdoctor/internal/pipeline"
	"meshdoctor/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run <ir.json>",
	Short: "Debug a single scene",
	Long: `Run the debug pipeline against one IR document: detect overlaps,
validate expected modifiers, optionally autofix, and print the report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyPipelineFlags(cmd, cfg)
		if f := cmd.Flags(); f.Changed("snapshot-scene-path") {
			cfg.SnapshotScenePath, _ = f.GetString("snapshot-scene-path")
		}
		if f := cmd.Flags(); f.Changed("snapshot-image-path") {
			cfg.SnapshotImagePath, _ = f.GetString("snapshot-image-path")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		doc, err := ir.Load(args[0])
		if err != nil {
			return err
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		rep, err := pipeline.New(cfg, logger, store).Run(cmd.Context(), pipeline.Request{
			Session:   bridge.New(cfg.EngineURL),
			Doc:       doc,
			Source:    args[0],
			ScenePath: cfg.SnapshotScenePath,
			ImagePath: cfg.SnapshotImagePath,
		})
		if err != nil {
			return err
		}

		printReport(rep)
		return nil
	},
}

func init() {
	registerPipelineFlags(runCmd)
	f := runCmd.Flags()
	f.String("snapshot-scene-path", "", "save the scene to this path after visualization")
	f.String("snapshot-image-path", "", "render the viewport to this path after visualization")
	rootCmd.AddCommand(runCmd)
}

func printReport(rep *types.DebugReport) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Debug Report ==="))
	fmt.Printf("Source:      %s\n", rep.Source)
	fmt.Printf("Run:         %s\n", gray(rep.RunID))

	scoreColor := green
	if rep.Score < 0.9 {
		scoreColor = yellow
	}
	if rep.Score < 0.7 {
		scoreColor = red
	}
	fmt.Printf("Score:       %s\n", scoreColor(fmt.Sprintf("%.6f", rep.Score)))
	fmt.Printf("Termination: %s (%d iterations, %d fixes)\n",
		rep.Termination, rep.IterationsRun, rep.FixesApplied)

	fmt.Println("Overlap volumes:")
	keys := make([]string, 0, len(rep.Overlaps))
	for k := range rep.Overlaps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := rep.Overlaps[k]
		line := fmt.Sprintf("  %-22s %.9f m3", k, v)
		if v > 0 {
			fmt.Println(red(line))
		} else {
			fmt.Println(gray(line))
		}
	}

	if len(rep.Problems) == 0 {
		fmt.Printf("\n%s\n", green("No problems found."))
		return
	}
	fmt.Printf("\n%s\n", yellow(fmt.Sprintf("Problems (%d):", len(rep.Problems))))
	for _, p := range rep.Problems {
		sevColor := yellow
		if p.Severity >= types.SeverityError {
			sevColor = red
		}
		fmt.Printf("  %s %s", sevColor(fmt.Sprintf("[%d]", p.Severity)), p.Code)
		if len(p.Subjects) > 0 {
			fmt.Printf(" %s", gray(fmt.Sprintf("%v", p.Subjects)))
		}
		fmt.Printf("\n      %s\n", p.Message)
	}
}
