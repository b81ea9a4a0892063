package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name        string
		config      *Config
		expectError bool
		errorMsg    string
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name: "Valid config with all fields",
			config: &Config{
				LogLevel:               2,
				LogFormat:              "json",
				ChainName:              "Kusama",
				MaxAcceptedCommission:  10,
				RefreshIntervalSeconds: 120,
				InitialFetchRetries:    5,
				QueryServerPort:        9000,
				MetaCacheSize:          64,
			},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 10.0, cfg.MaxAcceptedCommission)
				assert.Equal(t, 9000, cfg.QueryServerPort)
				assert.Equal(t, "Kusama", cfg.ChainName)
			},
		},
		{
			name: "Invalid log level (negative)",
			config: &Config{
				LogLevel:  -1,
				LogFormat: "json",
			},
			expectError: true,
			errorMsg:    "log level must be between 0 and 5",
		},
		{
			name: "Invalid log level (too high)",
			config: &Config{
				LogLevel:  6,
				LogFormat: "json",
			},
			expectError: true,
			errorMsg:    "log level must be between 0 and 5",
		},
		{
			name: "Invalid log format",
			config: &Config{
				LogLevel:  2,
				LogFormat: "xml",
			},
			expectError: true,
			errorMsg:    "log format must be 'json' or 'console'",
		},
		{
			name: "Commission above 100",
			config: &Config{
				LogFormat:             "json",
				MaxAcceptedCommission: 120,
			},
			expectError: true,
			errorMsg:    "max accepted commission must be within (0, 100]",
		},
		{
			name: "Negative relay timeout",
			config: &Config{
				LogFormat:           "json",
				RelayTimeoutSeconds: -1,
			},
			expectError: true,
			errorMsg:    "relay timeout must not be negative",
		},
		{
			name: "Unknown chain",
			config: &Config{
				LogFormat: "console",
				ChainName: "Rococo",
			},
			expectError: true,
			errorMsg:    `unknown chain "Rococo"`,
		},
		{
			name: "Config with defaults applied",
			config: &Config{
				LogLevel:  2,
				LogFormat: "json",
			},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 20.0, cfg.MaxAcceptedCommission)
				assert.Equal(t, 600, cfg.RefreshIntervalSeconds)
				assert.Equal(t, 3, cfg.InitialFetchRetries)
				assert.Equal(t, 8090, cfg.QueryServerPort)
				assert.Equal(t, 256, cfg.MetaCacheSize)
				assert.Equal(t, 0, cfg.RelayTimeoutSeconds)
				assert.Equal(t, "Polkadot", cfg.ChainName)
				assert.Contains(t, cfg.ChainConfigs, "Polkadot")
				assert.Contains(t, cfg.ChainConfigs, "Kusama")
				assert.Contains(t, cfg.ChainConfigs, "Westend")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateConfig(tc.config)

			if tc.expectError {
				assert.Error(t, err)
				if tc.errorMsg != "" {
					assert.Contains(t, err.Error(), tc.errorMsg)
				}
			} else {
				assert.NoError(t, err)
				if tc.validate != nil {
					tc.validate(t, tc.config)
				}
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("Save and load valid config", func(t *testing.T) {
		cfg := &Config{
			LogLevel:  1,
			LogFormat: "json",
			Account:   "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
			ChainName: "Westend",
		}

		err := Save(cfg, tempDir)
		require.NoError(t, err)

		configPath := filepath.Join(tempDir, configSubdir, configFileName)
		_, err = os.Stat(configPath)
		require.NoError(t, err)

		loaded, err := Load(tempDir)
		require.NoError(t, err)
		assert.Equal(t, cfg.Account, loaded.Account)
		assert.Equal(t, "Westend", loaded.ChainName)
		assert.Equal(t, uint16(42), loaded.GetChainConfig("Westend").SS58Prefix)
	})

	t.Run("Save invalid config", func(t *testing.T) {
		cfg := &Config{LogLevel: 9, LogFormat: "json"}
		err := Save(cfg, tempDir)
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("Load missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(tempDir, "missing"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("Load malformed file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, configSubdir), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, configSubdir, configFileName), []byte("{"), 0o600))

		_, err := Load(dir)
		assert.ErrorContains(t, err, "failed to unmarshal config")
	})
}

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := LoadDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "Polkadot", cfg.ChainName)
	assert.Equal(t, 20.0, cfg.MaxAcceptedCommission)

	ksm := cfg.GetChainConfig("Kusama")
	assert.Equal(t, uint8(12), ksm.Decimals)
	assert.Equal(t, "KSM", ksm.Token)
	assert.Contains(t, ksm.ProxyTypes, "Society")

	empty := cfg.GetChainConfig("Unknown")
	assert.Empty(t, empty.WSURLs)
}

func TestActiveChain(t *testing.T) {
	cfg, err := LoadDefaultConfig()
	require.NoError(t, err)

	active, err := cfg.ActiveChain()
	require.NoError(t, err)
	assert.Equal(t, "DOT", active.Token)

	cfg.ChainName = "Nowhere"
	_, err = cfg.ActiveChain()
	assert.ErrorContains(t, err, "no config found for chain Nowhere")
}
