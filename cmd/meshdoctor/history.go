package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"meshdoctor/internal/storage"
	"meshdoctor/internal/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent debug runs",
	Long:  `List recent runs from the history database, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("history-db") {
			cfg.HistoryDB, _ = f.GetString("history-db")
		}
		if cfg.HistoryDB == "" {
			return types.NewConfigError("no history database configured; set history_db or --history-db")
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		source, _ := f.GetString("source")
		limit, _ := f.GetInt("limit")
		runs, err := store.ListRuns(cmd.Context(), source, limit)
		if err != nil {
			return err
		}

		printHistory(runs)
		return nil
	},
}

func init() {
	f := historyCmd.Flags()
	f.String("history-db", "", "sqlite file recording run history")
	f.String("source", "", "only show runs of this input file")
	f.Int("limit", 20, "maximum runs to show")
	rootCmd.AddCommand(historyCmd)
}

func printHistory(runs []storage.RunRecord) {
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, run := range runs {
		when := run.StartedAt.Local().Format("2006-01-02 15:04:05")
		if run.Status == storage.StatusError {
			fmt.Printf("%s  %s %s  %s\n", gray(when), red("✗"), run.Source, red(run.Error))
			continue
		}
		fmt.Printf("%s  %s %s  score=%.6f problems=%d fixes=%d %s\n",
			gray(when), green("✓"), run.Source,
			run.Score, run.Problems, run.Fixes,
			gray(fmt.Sprintf("(%s, %d iterations)", run.Termination, run.Iterations)))
	}
}
