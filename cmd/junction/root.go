package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "junction",
	Short: "Junction aggregates endpoint sources into one change-aware registry",
	Long: `Junction merges endpoint collections from multiple sources (static config,
YAML manifests, Redis) into a single cached snapshot and notifies consumers
whenever the merged set changes.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the junction config file")
}
