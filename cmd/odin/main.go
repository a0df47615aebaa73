package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/odin/pkg/api"
	"github.com/cuemby/odin/pkg/client"
	"github.com/cuemby/odin/pkg/config"
	"github.com/cuemby/odin/pkg/engine"
	"github.com/cuemby/odin/pkg/log"
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/cuemby/odin/pkg/reconciler"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "odin",
	Short: "Odin - resource forecasting and autonomous response engine",
	Long: `Odin forecasts spacecraft thermal and power state, schedules mission
activities against shared resources, and responds autonomously to
solar flares, thermal runaway, low charge and scheduling conflicts.

Run the engine with 'odin run'; the other commands talk to a running
engine over its HTTP API.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log.Init(log.Config{
			Level:      log.ParseLevel(cfg.Log.Level),
			JSONOutput: cfg.Log.JSON,
		})
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Odin version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("api", "", "Engine API address (defaults to api_addr from config)")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "Timeout for each API request")

	rootCmd.AddCommand(runCmd)
}

// loadConfig reads --config once per invocation
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newClient builds an API client from --api or the configured address
func newClient(cmd *cobra.Command) (*client.Client, error) {
	addr, _ := cmd.Flags().GetString("api")
	if addr == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		addr = cfg.APIAddr
	}
	c, err := client.NewClient(addr)
	if err != nil {
		return nil, err
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine with its HTTP and gRPC health APIs",
	Long: `Run starts the forecasting engine, restoring catalogs from the data
directory, and serves the HTTP API and the gRPC health service until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
			cfg.DataDir = dir
		}
		if addr, _ := cmd.Flags().GetString("api-addr"); addr != "" {
			cfg.APIAddr = addr
		}
		if addr, _ := cmd.Flags().GetString("grpc-addr"); addr != "" {
			cfg.GRPCAddr = addr
		}
		logger := log.WithComponent("main")

		fmt.Println("Starting Odin engine...")
		fmt.Printf("  Data Directory: %s\n", cfg.DataDir)
		fmt.Printf("  API Address: %s\n", cfg.APIAddr)
		fmt.Printf("  gRPC Health Address: %s\n", cfg.GRPCAddr)
		fmt.Printf("  Tick Interval: %s\n", cfg.TickInterval)
		fmt.Println()

		metrics.SetVersion(Version)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		eng, err := engine.NewFromConfig(ctx, cfg)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to create engine: %w", err)
		}
		eng.Start()
		fmt.Println("✓ Engine started")

		recon := reconciler.NewReconciler(eng, cfg.TickInterval)
		recon.Start()
		fmt.Println("✓ Reconciler started")

		guard, err := api.NewGuard(cfg.API)
		if err != nil {
			_ = eng.Stop()
			return fmt.Errorf("invalid api config: %w", err)
		}
		apiServer := api.NewServer(eng, api.WithGuard(guard))
		healthSvc := api.NewHealthService(cfg.TickInterval)

		errCh := make(chan error, 2)
		go func() {
			if err := apiServer.Start(cfg.APIAddr); err != nil {
				errCh <- fmt.Errorf("API server error: %w", err)
			}
		}()
		go func() {
			if err := healthSvc.Start(cfg.GRPCAddr); err != nil {
				errCh <- fmt.Errorf("gRPC health error: %w", err)
			}
		}()

		fmt.Println()
		fmt.Println("Engine is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		if err := apiServer.Shutdown(5 * time.Second); err != nil {
			logger.Warn().Err(err).Msg("api shutdown")
		}
		healthSvc.Stop()
		recon.Stop()
		if err := eng.Stop(); err != nil {
			return fmt.Errorf("failed to shutdown: %w", err)
		}

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func init() {
	runCmd.Flags().String("data-dir", "", "Data directory for engine state (overrides config)")
	runCmd.Flags().String("api-addr", "", "Address for the HTTP API (overrides config)")
	runCmd.Flags().String("grpc-addr", "", "Address for the gRPC health service (overrides config)")
}
