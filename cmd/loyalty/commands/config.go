package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goloyalty/internal/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the loyalty CLI configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Create a default configuration file at ~/.goloyalty/config.yaml

Example:
  loyalty config init`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.InitConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		configPath, _ := cli.GetConfigPath()
		fmt.Printf("Configuration file created at: %s\n", configPath)
		fmt.Println("\nSet the API keys and base URLs with 'loyalty config set', or override")
		fmt.Println("them per shell with LOYALTY_BASE_URL and LOYALTY_API_KEY.")

		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration",
	Long: `Display the current configuration.

Example:
  loyalty config list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Printf("Default Environment: %s\n\n", cfg.DefaultEnv)
		fmt.Println("Environments:")
		names := make([]string, 0, len(cfg.Environments))
		for name := range cfg.Environments {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			envCfg := cfg.Environments[name]
			fmt.Printf("  %s:\n", name)
			fmt.Printf("    base_url: %s\n", envCfg.BaseURL)
			// Mask API key for security
			maskedKey := "***"
			if envCfg.APIKey == "" {
				maskedKey = "(none)"
			} else if len(envCfg.APIKey) > 4 {
				maskedKey = envCfg.APIKey[:4] + "***"
			}
			fmt.Printf("    api_key: %s\n", maskedKey)
		}

		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <env.key>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value.

Examples:
  loyalty config get dev.base_url
  loyalty config get prod.api_key`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		envName, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}

		envCfg, ok := cfg.Environments[envName]
		if !ok {
			return fmt.Errorf("environment '%s' not found", envName)
		}

		switch key {
		case "base_url":
			fmt.Println(envCfg.BaseURL)
		case "api_key":
			fmt.Println(envCfg.APIKey)
		default:
			return fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", key)
		}

		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <env.key> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Examples:
  loyalty config set dev.base_url http://localhost:8080
  loyalty config set prod.api_key my-secret-key`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		envName, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}
		value := args[1]

		envCfg := cfg.Environments[envName]

		switch key {
		case "base_url":
			envCfg.BaseURL = value
		case "api_key":
			envCfg.APIKey = value
		default:
			return fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", key)
		}

		cfg.Environments[envName] = envCfg

		if err := cli.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("Successfully set %s.%s\n", envName, key)

		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <env>",
	Short: "Set the default environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if _, ok := cfg.Environments[args[0]]; !ok {
			return fmt.Errorf("environment '%s' not found", args[0])
		}
		cfg.DefaultEnv = args[0]
		if err := cli.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("Default environment is now '%s'\n", args[0])
		return nil
	},
}

func splitConfigKey(s string) (envName, key string, err error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid key format, expected 'env.key' (e.g., 'dev.base_url')")
	}
	return parts[0], parts[1], nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUseCmd)
}
