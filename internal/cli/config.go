package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	envBaseURL = "LOYALTY_BASE_URL"
	envAPIKey  = "LOYALTY_API_KEY"
)

// Config represents the CLI configuration
type Config struct {
	DefaultEnv   string               `yaml:"default_env"`
	Environments map[string]EnvConfig `yaml:"environments"`
}

// EnvConfig represents configuration for a specific environment
type EnvConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".goloyalty", "config.yaml"), nil
}

// LoadConfig loads the configuration from file. A missing file yields an
// empty config with default env "prod".
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{DefaultEnv: "prod", Environments: make(map[string]EnvConfig)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Environments == nil {
		cfg.Environments = make(map[string]EnvConfig)
	}
	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ResolveEnv builds the connection settings for envName.
// Each field is taken from the first non-empty source:
// command flags > LOYALTY_* environment variables > config file.
// The API key may stay empty; reads are public and the server rejects
// unauthenticated writes.
func ResolveEnv(envName, baseURLFlag, apiKeyFlag string) (*EnvConfig, string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}
	if envName == "" {
		envName = cfg.DefaultEnv
	}

	resolved := cfg.Environments[envName]
	if v := os.Getenv(envBaseURL); v != "" {
		resolved.BaseURL = v
	}
	if v := os.Getenv(envAPIKey); v != "" {
		resolved.APIKey = v
	}
	if baseURLFlag != "" {
		resolved.BaseURL = baseURLFlag
	}
	if apiKeyFlag != "" {
		resolved.APIKey = apiKeyFlag
	}

	if resolved.BaseURL == "" {
		return nil, "", fmt.Errorf("no base URL for environment '%s': set --base-url, %s or base_url in the config file", envName, envBaseURL)
	}
	return &resolved, envName, nil
}

// InitConfig creates a default config file
func InitConfig() error {
	cfg := &Config{
		DefaultEnv: "dev",
		Environments: map[string]EnvConfig{
			"dev": {
				BaseURL: "http://localhost:8080",
				APIKey:  "admin-123",
			},
			"prod": {
				BaseURL: "https://loyalty.example.com",
				APIKey:  "",
			},
		},
	}
	return SaveConfig(cfg)
}
