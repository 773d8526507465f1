package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "serverless-proxy",
	Short: "TLS proxy for the serverless gateway API",
	Long: `The serverless proxy sits in front of the gateway API and terminates TLS.

It provides:
  - Bearer token authentication with hot-reloaded token files
  - Routing across gateway replicas with health checking and failover
  - Per-token rate limiting and usage tracking
  - Request audit records with scheduled retention
  - Ray cluster administration through Helm and Kubernetes`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
