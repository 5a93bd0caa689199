package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"meshdoctor/internal/config"
	"meshdoctor/internal/logging"
	"meshdoctor/internal/storage"
	"meshdoctor/internal/storage/sqlite"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "meshdoctor",
	Short: "Debug and autofix generated furniture scenes",
	Long: `meshdoctor validates generated furniture scenes against their IR
documents: it detects part overlaps, checks expected modifiers for
presence and effect, optionally applies bounded corrective translations,
and reports a debug score per scene.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig reads the config file (when given) and returns it with
// defaults filled in. Flag overrides are applied by each command.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newLogger() (*zap.Logger, error) {
	return logging.New(verbose)
}

// openStore opens the history database when configured. A nil store
// disables history.
func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}
	return sqlite.Open(cfg.HistoryDB)
}
