package config

import "fmt"

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level"`   // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format"`  // "json" or "console"
	LogSampler bool   `json:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Node Config
	NodeHome string `json:"node_home"` // Home directory holding config and the metadata db (default: ~/.easystake)

	// Staking session
	Account                string  `json:"account"`                  // SS58 address of the staker
	ChainName              string  `json:"chain_name"`               // Polkadot, Kusama or Westend
	MaxAcceptedCommission  float64 `json:"max_accepted_commission"`  // Percent; validators at or above are never auto-selected (default: 20)
	RelayTimeoutSeconds    int     `json:"relay_timeout_seconds"`    // 0 leaves relays without a deadline
	RefreshIntervalSeconds int     `json:"refresh_interval_seconds"` // How often the session re-fetches chain data (default: 600)
	InitialFetchRetries    int     `json:"initial_fetch_retries"`    // Attempts for the first refresh (default: 3)

	// Query Server Config
	QueryServerPort int `json:"query_server_port"` // Port for HTTP query server (default: 8090)

	// Metadata store
	MetaCacheSize int `json:"meta_cache_size"` // Entries kept in the in-memory front cache (default: 256)

	// Per-chain configuration keyed by chain name
	ChainConfigs map[string]ChainSpecificConfig `json:"chain_configs"`
}

// ChainSpecificConfig holds all chain-specific configuration in one place
type ChainSpecificConfig struct {
	WSURLs        []string `json:"ws_urls,omitempty"`         // Substrate websocket endpoints, first reachable wins
	SubscanURL    string   `json:"subscan_url,omitempty"`     // Subscan API base for reward history
	SubscanAPIKey string   `json:"subscan_api_key,omitempty"` // Optional X-API-Key for Subscan
	Decimals      uint8    `json:"decimals"`                  // Token decimals used for human amounts
	Token         string   `json:"token,omitempty"`           // Token symbol
	SS58Prefix    uint16   `json:"ss58_prefix"`               // Address format
	ProxyTypes    []string `json:"proxy_types,omitempty"`     // Proxy types supported by the runtime
}

// GetChainConfig returns the complete configuration for a specific chain
func (c *Config) GetChainConfig(chainName string) *ChainSpecificConfig {
	if c.ChainConfigs != nil {
		if config, ok := c.ChainConfigs[chainName]; ok {
			return &config
		}
	}
	return &ChainSpecificConfig{}
}

// ActiveChain returns the settings of the configured chain or an error when
// the chain is unknown.
func (c *Config) ActiveChain() (*ChainSpecificConfig, error) {
	config, ok := c.ChainConfigs[c.ChainName]
	if !ok {
		return nil, fmt.Errorf("no config found for chain %s", c.ChainName)
	}
	if len(config.WSURLs) == 0 {
		return nil, fmt.Errorf("ws_urls is required for chain %s", c.ChainName)
	}
	return &config, nil
}
