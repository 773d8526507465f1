package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/server"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the proxy server",
	Long: `Start the proxy server with the specified configuration.

The server listens on the configured address, terminates TLS, and forwards
authenticated gateway API requests to healthy upstreams.

Examples:
  # Start with the default config
  serverless-proxy run

  # Start with a custom config
  serverless-proxy run --config /etc/serverless/config.yaml

  # Override the listen address
  serverless-proxy run --listen 0.0.0.0:8443

  # Validate config without starting
  serverless-proxy run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	logger, err := logging.New(&cfg.Telemetry.Logging, nil)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	srv, err := server.New(cfg, Version, logger)
	if err != nil {
		return err
	}

	// Start blocks until SIGINT/SIGTERM or a listener failure and performs
	// the graceful shutdown itself.
	return srv.Start(context.Background())
}
