package main

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/easystake/stakingClient/config"
)

func newTestViper(t *testing.T, home string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.Set(flagHome, home)
	v.SetDefault(flagLogLevel, -1)
	return v
}

func TestLoadConfig_DefaultsWhenMissing(t *testing.T) {
	home := t.TempDir()
	cfg, err := loadConfig(newTestViper(t, home))
	require.NoError(t, err)
	assert.Equal(t, home, cfg.NodeHome)
	assert.Equal(t, "Polkadot", cfg.ChainName)
	assert.Equal(t, 20.0, cfg.MaxAcceptedCommission)
}

func TestLoadConfig_FileAndOverrides(t *testing.T) {
	home := t.TempDir()
	base, err := config.LoadDefaultConfig()
	require.NoError(t, err)
	base.ChainName = "Kusama"
	base.MaxAcceptedCommission = 10
	require.NoError(t, config.Save(base, home))

	v := newTestViper(t, home)
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "Kusama", cfg.ChainName)
	assert.Equal(t, 10.0, cfg.MaxAcceptedCommission)

	t.Setenv("EASYSTAKE_CHAIN", "Westend")
	t.Setenv("EASYSTAKE_ACCOUNT", "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY")
	cfg, err = loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "Westend", cfg.ChainName)
	assert.Equal(t, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", cfg.Account)
}

func TestLoadConfig_UnknownChain(t *testing.T) {
	v := newTestViper(t, t.TempDir())
	v.Set(flagChain, "Rococo")
	_, err := loadConfig(v)
	assert.Error(t, err)
}

func TestProxyTypesCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"proxy", "types", "Kusama", "--home", t.TempDir(), "-o", "json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"Society"`)
}

func TestProxyCheckCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"proxy", "check", "Bob: 5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty", "Staking", "--home", t.TempDir()})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "can be added")

	root = NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"proxy", "check", "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty", "Society", "--home", t.TempDir()})
	assert.Error(t, root.Execute())
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "easystaked")
}
