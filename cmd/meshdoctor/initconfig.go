package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meshdoctor/internal/config"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config <path>",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to a YAML file as a starting point
for editing. Pass the file back with --config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SaveDefault(args[0]); err != nil {
			return err
		}
		fmt.Printf("Default configuration written to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initConfigCmd)
}
