package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/junction"
	"github.com/aretw0/junction/internal/cli"
	"github.com/aretw0/junction/internal/presentation/tui"
	httpAdapter "github.com/aretw0/junction/pkg/adapters/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the registry HTTP server",
	Long:  `Starts the aggregated endpoint registry, exposing the snapshot, a long-poll watch and prometheus metrics over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		listen, _ := cmd.Flags().GetString("listen")

		cfg, err := cli.LoadConfig(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("listen") {
			cfg.Listen = listen
		}

		rt, err := cli.NewRuntime(cfg, cli.WithDefaultMetrics())
		if err != nil {
			fmt.Printf("Error building sources: %v\n", err)
			os.Exit(1)
		}

		tui.PrintBanner(junction.Version)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := rt.Start(ctx); err != nil {
			fmt.Printf("Error starting sources: %v\n", err)
			os.Exit(1)
		}

		router := chi.NewRouter()
		router.Mount("/", httpAdapter.NewHandler(rt.Registry))
		router.Handle("/metrics", promhttp.Handler())

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: router,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			rt.Logger.Info("Starting Junction Server", "address", srv.Addr, "sources", rt.Registry.Providers())
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			rt.Logger.Info("Starting shutdown", "signal", sig.String())
			cancel()

			// Give outstanding requests a deadline for completion.
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			rt.Logger.Info("Junction Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", ":8080", "Address to listen on (overrides config)")
}
