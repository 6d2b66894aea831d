package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/junction"
	"github.com/aretw0/junction/internal/cli"
	mcpAdapter "github.com/aretw0/junction/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the registry as an MCP Server over stdio.
This allows AI agents to list the aggregated endpoints and wait for changes as tools.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := cli.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		rt, err := cli.NewRuntime(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error building sources: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := rt.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting sources: %v\n", err)
			os.Exit(1)
		}

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		rt.Logger.Info("Starting Junction MCP Server (Stdio)")

		srv := mcpAdapter.NewServer(rt.Registry, junction.Version)
		if err := srv.ServeStdio(); err != nil {
			rt.Logger.Error("MCP Server execution failed", "err", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
