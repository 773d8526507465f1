package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richrines1/qiskit-serverless/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration file, apply defaults and environment overrides,
and report every validation problem found.

Examples:
  serverless-proxy validate
  serverless-proxy validate --config /etc/serverless/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("loading %s: %w", cfgFile, err)
	}

	if err := config.Validate(cfg); err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("%s: %d problem(s) found\n", cfgFile, len(verr.Errors))
			for _, f := range verr.Errors {
				fmt.Printf("  %s: %s\n", f.Field, f.Message)
			}
			return fmt.Errorf("configuration invalid")
		}
		return err
	}

	fmt.Printf("%s: configuration valid\n", cfgFile)
	fmt.Printf("  upstreams: %d\n", len(cfg.Upstreams))
	fmt.Printf("  routing strategy: %s\n", cfg.Routing.Strategy)
	fmt.Printf("  tls enabled: %t\n", cfg.Security.TLS.Enabled)
	return nil
}
