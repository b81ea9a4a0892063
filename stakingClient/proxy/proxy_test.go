package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/easystake/stakingClient/config"
	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
	"github.com/pushchain/easystake/stakingClient/ss58"
)

const (
	alice = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	bob   = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg, err := config.LoadDefaultConfig()
	require.NoError(t, err)
	return NewRegistry(cfg)
}

func TestTypesPerChain(t *testing.T) {
	r := newRegistry(t)

	kusama, err := r.Types("Kusama")
	require.NoError(t, err)
	assert.Contains(t, kusama, "Society")

	westend, err := r.Types("Westend")
	require.NoError(t, err)
	assert.Contains(t, westend, "SudoBalances")
	assert.NotContains(t, westend, "Governance")

	polkadot, err := r.Types("Polkadot")
	require.NoError(t, err)
	assert.Equal(t, []string{"Any", "NonTransfer", "Staking", "Governance", "IdentityJudgement", "CancelProxy", "Auction"}, polkadot)

	_, err = r.Types("Rococo")
	assert.True(t, stakingerrors.IsStakingError(err, stakingerrors.ErrCodeConfig))
}

func TestParseDelegate(t *testing.T) {
	got, ok := ParseDelegate("Bob: " + bob)
	assert.True(t, ok)
	assert.Equal(t, bob, got)

	got, ok = ParseDelegate("  " + alice + " ")
	assert.True(t, ok)
	assert.Equal(t, alice, got)

	_, ok = ParseDelegate("Bob: not-an-address")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	r := newRegistry(t)
	existing := []Proxy{{Delegate: bob, ProxyType: "Staking", Delay: 0}}

	assert.NoError(t, r.Validate("Polkadot", Proxy{Delegate: bob, ProxyType: "Any"}, existing))
	assert.NoError(t, r.Validate("Polkadot", Proxy{Delegate: bob, ProxyType: "Staking", Delay: 10}, existing))

	err := r.Validate("Polkadot", Proxy{Delegate: bob, ProxyType: "Staking"}, existing)
	assert.ErrorContains(t, err, "already exists")

	// same account in Polkadot format is still a duplicate
	bobDot, err := ss58.Reencode(bob, 0)
	require.NoError(t, err)
	assert.Error(t, r.Validate("Polkadot", Proxy{Delegate: bobDot, ProxyType: "Staking"}, existing))

	assert.Error(t, r.Validate("Polkadot", Proxy{Delegate: bob, ProxyType: "Society"}, nil))
	assert.NoError(t, r.Validate("Kusama", Proxy{Delegate: bob, ProxyType: "Society"}, nil))
	assert.Error(t, r.Validate("Polkadot", Proxy{Delegate: "nope", ProxyType: "Any"}, nil))
}

func TestAdd(t *testing.T) {
	r := newRegistry(t)
	existing := []Proxy{{Delegate: bob, ProxyType: "Staking"}}

	out, err := r.Add("Polkadot", Proxy{Delegate: alice, ProxyType: "Any"}, existing)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Len(t, existing, 1)

	out, err = r.Add("Polkadot", existing[0], existing)
	assert.Error(t, err)
	assert.Equal(t, existing, out)
}

func TestSelectable(t *testing.T) {
	charlie := "5FLSigC9HGRKVhB9FiEo4Y3koPsNmBmLJbpXg2mp1hXcS59Y"
	proxies := []Proxy{
		{Delegate: bob, ProxyType: "Staking"},
		{Delegate: charlie, ProxyType: "Governance"},
		{Delegate: alice, ProxyType: "Any"},
		{Delegate: charlie, ProxyType: "NonTransfer"},
	}
	local := func(a string) bool { return a != bob }

	got := Selectable(proxies, alice, StakingTypes, local)
	require.Len(t, got, 1)
	assert.Equal(t, charlie, got[0].Delegate)
	assert.Equal(t, "NonTransfer", got[0].ProxyType)

	assert.Len(t, Selectable(proxies, alice, StakingTypes, nil), 2)
}
