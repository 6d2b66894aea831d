package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/junction/internal/cli"
	"github.com/aretw0/junction/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the aggregated endpoint snapshot",
	Long:  `Reads every configured source once and prints the merged snapshot. Renders a table on a terminal, plain markdown otherwise.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		plain, _ := cmd.Flags().GetBool("plain")

		cfg, err := cli.LoadConfig(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		rt, err := cli.NewRuntime(cfg)
		if err != nil {
			fmt.Printf("Error building sources: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := rt.Start(ctx); err != nil {
			fmt.Printf("Error starting sources: %v\n", err)
			os.Exit(1)
		}

		endpoints, err := rt.Registry.Endpoints(ctx)
		if err != nil {
			fmt.Printf("Error reading sources: %v\n", err)
			os.Exit(1)
		}

		markdown := tui.EndpointsMarkdown(endpoints)
		if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Print(markdown)
			return
		}

		render := tui.NewRenderer()
		out, err := render(markdown)
		if err != nil {
			// Fall back to the raw markdown rather than failing the dump.
			fmt.Print(markdown)
			return
		}
		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().Bool("plain", false, "Skip terminal rendering and print raw markdown")
}
