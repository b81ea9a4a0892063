// Package proxy validates and filters the proxy accounts that may act for a
// staker.
package proxy

import (
	"fmt"
	"strings"

	"github.com/pushchain/easystake/stakingClient/config"
	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
	"github.com/pushchain/easystake/stakingClient/ss58"
)

// Proxy types that may submit staking calls.
var StakingTypes = []string{"Any", "NonTransfer", "Staking"}

// Proxy is one delegate allowed to act for an account.
type Proxy struct {
	Delegate  string `json:"delegate"`
	ProxyType string `json:"proxyType"`
	Delay     uint32 `json:"delay"`
}

// Equal compares delegates by public key, so the same account in another
// address format is the same delegate.
func (p Proxy) Equal(o Proxy) bool {
	if p.ProxyType != o.ProxyType || p.Delay != o.Delay {
		return false
	}
	a, _, errA := ss58.Decode(p.Delegate)
	b, _, errB := ss58.Decode(o.Delegate)
	if errA != nil || errB != nil {
		return p.Delegate == o.Delegate
	}
	return string(a) == string(b)
}

// Registry knows the proxy types of each configured chain.
type Registry struct {
	chains map[string]config.ChainSpecificConfig
}

func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{chains: cfg.ChainConfigs}
}

// Types returns the proxy types of chainName.
func (r *Registry) Types(chainName string) ([]string, error) {
	c, ok := r.chains[chainName]
	if !ok || len(c.ProxyTypes) == 0 {
		return nil, stakingerrors.NewConfigError(chainName, "no proxy types configured")
	}
	return append([]string(nil), c.ProxyTypes...), nil
}

// ParseDelegate extracts an address from "name: address" or a bare address.
func ParseDelegate(input string) (string, bool) {
	if i := strings.Index(input, ":"); i >= 0 {
		input = input[i+1:]
	}
	input = strings.TrimSpace(input)
	if !ss58.Valid(input) {
		return "", false
	}
	return input, true
}

// Validate checks a new proxy for chainName against the ones already set.
func (r *Registry) Validate(chainName string, candidate Proxy, existing []Proxy) error {
	if !ss58.Valid(candidate.Delegate) {
		return stakingerrors.NewValidationError(chainName, fmt.Sprintf("invalid delegate address %q", candidate.Delegate))
	}
	types, err := r.Types(chainName)
	if err != nil {
		return err
	}
	if !contains(types, candidate.ProxyType) {
		return stakingerrors.NewValidationError(chainName, fmt.Sprintf("unknown proxy type %q", candidate.ProxyType))
	}
	for _, p := range existing {
		if p.Equal(candidate) {
			return stakingerrors.NewValidationError(chainName, "this proxy already exists")
		}
	}
	return nil
}

// Add validates candidate and returns existing with it appended.
func (r *Registry) Add(chainName string, candidate Proxy, existing []Proxy) ([]Proxy, error) {
	if err := r.Validate(chainName, candidate, existing); err != nil {
		return existing, err
	}
	return append(append([]Proxy(nil), existing...), candidate), nil
}

// Selectable returns the proxies of real that can act now: their type is one
// of acceptable, the delegate is held locally and it is not real itself.
func Selectable(proxies []Proxy, real string, acceptable []string, isLocal func(address string) bool) []Proxy {
	out := make([]Proxy, 0, len(proxies))
	for _, p := range proxies {
		if p.Delegate == real || !contains(acceptable, p.ProxyType) {
			continue
		}
		if isLocal != nil && !isLocal(p.Delegate) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
