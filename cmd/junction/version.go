package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/junction"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of junction",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("junction version %s\n", strings.TrimSpace(junction.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
