package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/easystake/stakingClient/config"
)

const envPrefix = "EASYSTAKE"

// Persistent flag names, also readable as EASYSTAKE_<NAME> with dashes as underscores.
const (
	flagHome      = "home"
	flagAccount   = "account"
	flagChain     = "chain"
	flagOutput    = "output"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "easystaked",
		Short:         "Easy staking companion for Substrate nominated proof-of-stake chains",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String(flagHome, config.DefaultHome(), "Home directory for config and metadata")
	pf.String(flagAccount, "", "SS58 address of the staker")
	pf.String(flagChain, "", "Chain name (Polkadot, Kusama, Westend)")
	pf.StringP(flagOutput, "o", "text", "Output format (text|json|yaml)")
	pf.Int(flagLogLevel, -1, "Log level 0..5, overrides the config")
	pf.String(flagLogFormat, "", "Log format json|console, overrides the config")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	InitRootCmd(rootCmd, v)

	return rootCmd
}

// loadConfig reads the config under --home, falling back to the embedded
// defaults, and applies flag and environment overrides.
func loadConfig(v *viper.Viper) (config.Config, error) {
	home := v.GetString(flagHome)
	if home == "" {
		home = config.DefaultHome()
	}

	cfg, err := config.Load(home)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
		def, derr := config.LoadDefaultConfig()
		if derr != nil {
			return config.Config{}, derr
		}
		cfg = *def
	}
	cfg.NodeHome = home

	if s := v.GetString(flagAccount); s != "" {
		cfg.Account = s
	}
	if s := v.GetString(flagChain); s != "" {
		cfg.ChainName = s
	}
	if lvl := v.GetInt(flagLogLevel); lvl >= 0 {
		cfg.LogLevel = lvl
	}
	if s := v.GetString(flagLogFormat); s != "" {
		cfg.LogFormat = s
	}

	if err := config.Validate(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
