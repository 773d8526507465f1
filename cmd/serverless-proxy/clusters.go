package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/richrines1/qiskit-serverless/pkg/cluster"
	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Manage Ray clusters",
	Long: `Create, inspect, and delete Ray clusters directly, using the same
Kubernetes and Helm configuration as the proxy's admin API.

Examples:
  serverless-proxy clusters list
  serverless-proxy clusters get my-cluster
  serverless-proxy clusters create my-cluster
  serverless-proxy clusters delete my-cluster`,
}

var clustersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clusters in the configured namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClusterManager(func(ctx context.Context, m *cluster.Manager) error {
			clusters, err := m.List(ctx)
			if err != nil {
				return err
			}
			return printJSON(clusters)
		})
	},
}

var clustersGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a cluster's head node address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClusterManager(func(ctx context.Context, m *cluster.Manager) error {
			c, err := m.Get(ctx, args[0])
			if err != nil {
				if errors.Is(err, cluster.ErrClusterNotFound) {
					return fmt.Errorf("cluster %q not found", args[0])
				}
				return err
			}
			return printJSON(c)
		})
	},
}

var clustersCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClusterManager(func(ctx context.Context, m *cluster.Manager) error {
			c, err := m.Create(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("cluster %q created\n", c.Name)
			return printJSON(c)
		})
	},
}

var clustersDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClusterManager(func(ctx context.Context, m *cluster.Manager) error {
			if err := m.Delete(ctx, args[0]); err != nil {
				if errors.Is(err, cluster.ErrClusterNotFound) {
					return fmt.Errorf("cluster %q not found", args[0])
				}
				return err
			}
			fmt.Printf("cluster %q deleted\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(clustersCmd)
	clustersCmd.AddCommand(clustersListCmd)
	clustersCmd.AddCommand(clustersGetCmd)
	clustersCmd.AddCommand(clustersCreateCmd)
	clustersCmd.AddCommand(clustersDeleteCmd)
}

func withClusterManager(fn func(context.Context, *cluster.Manager) error) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(&config.LoggingConfig{Level: level, Format: "text"}, os.Stderr)
	if err != nil {
		return err
	}

	m, err := cluster.NewManager(&cfg.Clusters, logger, nil)
	if err != nil {
		return fmt.Errorf("connecting to kubernetes: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return fn(ctx, m)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
