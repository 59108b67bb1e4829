package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goloyalty/internal/cli"
	"github.com/TimurManjosov/goloyalty/internal/client"
	"github.com/TimurManjosov/goloyalty/internal/store"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	env     string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "loyalty",
	Short: "CLI tool for managing loyalty rule sets",
	Long: `Loyalty is a command-line tool for the rule sets that decide when a
campaign, coupon or product rule applies.

Rule sets are edited as local YAML or JSON documents. The group and condition
commands rewrite the document in place; nothing reaches the server until the
document is pushed.

Examples:
  loyalty list coupon --env prod
  loyalty get coupon WELCOME10 --output welcome10.yaml
  loyalty group add welcome10.yaml --match all
  loyalty condition add welcome10.yaml --group <id> --type cart_total --operator greater_than --value 50
  loyalty push welcome10.yaml --env prod`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the loyalty API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Environment (dev, staging, prod)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// newAPIClient resolves the target environment and builds a client for it.
func newAPIClient() (*client.Client, string, error) {
	envCfg, effectiveEnv, err := cli.ResolveEnv(env, baseURL, apiKey)
	if err != nil {
		return nil, "", fmt.Errorf("configuration error: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Using environment '%s' (%s)\n", effectiveEnv, envCfg.BaseURL)
	}
	return client.NewClient(envCfg.BaseURL, envCfg.APIKey), effectiveEnv, nil
}

func parseKind(s string) (store.OwnerKind, error) {
	kind := store.OwnerKind(s)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind '%s' (want campaign, coupon or product_rule)", s)
	}
	return kind, nil
}

func outputFormat() (cli.OutputFormat, error) {
	switch f := cli.OutputFormat(format); f {
	case cli.FormatTable, cli.FormatJSON, cli.FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format '%s' (want table, json or yaml)", format)
	}
}
