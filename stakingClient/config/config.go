package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configSubdir   = "config"
	configFileName = "easystake_config.json"
)

//go:embed default_config.json
var defaultConfigJSON []byte

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	if cfg.MaxAcceptedCommission == 0 {
		cfg.MaxAcceptedCommission = 20
	}
	if cfg.MaxAcceptedCommission < 0 || cfg.MaxAcceptedCommission > 100 {
		return fmt.Errorf("max accepted commission must be within (0, 100]")
	}

	if cfg.RelayTimeoutSeconds < 0 {
		return fmt.Errorf("relay timeout must not be negative")
	}
	if cfg.RefreshIntervalSeconds == 0 {
		cfg.RefreshIntervalSeconds = 600
	}
	if cfg.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if cfg.InitialFetchRetries == 0 {
		cfg.InitialFetchRetries = 3
	}
	if cfg.QueryServerPort == 0 {
		cfg.QueryServerPort = 8090
	}
	if cfg.MetaCacheSize == 0 {
		cfg.MetaCacheSize = 256
	}

	// Initialize ChainConfigs if nil or empty
	if len(cfg.ChainConfigs) == 0 {
		var defaultCfg Config
		if err := json.Unmarshal(defaultConfigJSON, &defaultCfg); err == nil {
			cfg.ChainConfigs = defaultCfg.ChainConfigs
		} else {
			cfg.ChainConfigs = make(map[string]ChainSpecificConfig)
		}
	}

	if cfg.ChainName == "" {
		cfg.ChainName = "Polkadot"
	}
	if _, ok := cfg.ChainConfigs[cfg.ChainName]; !ok {
		return fmt.Errorf("unknown chain %q", cfg.ChainName)
	}

	return nil
}

// Validate applies defaults and checks the config in place.
func Validate(cfg *Config) error {
	return validateConfig(cfg)
}

// Save writes the given config to <NodeHome>/config/easystake_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, configSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, configFileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads and returns the config from <BasePath>/config/easystake_config.json.
func Load(basePath string) (Config, error) {
	configFile := filepath.Join(basePath, configSubdir, configFileName)
	data, err := os.ReadFile(filepath.Clean(configFile))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}

// DefaultHome returns ~/.easystake, falling back to the working directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".easystake"
	}
	return filepath.Join(home, ".easystake")
}
