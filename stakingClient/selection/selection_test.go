package selection

import (
	"fmt"
	"math/rand"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/easystake/stakingClient/chain"
)

func record(id string, commission uint32, blocked bool, nominators int) chain.ValidatorRecord {
	v := chain.ValidatorRecord{
		AccountID:      id,
		ValidatorPrefs: chain.ValidatorPrefs{Commission: commission, Blocked: blocked},
		Exposure:       chain.Exposure{Own: math.NewInt(100), Total: math.NewInt(100)},
	}
	for i := 0; i < nominators; i++ {
		v.Exposure.Others = append(v.Exposure.Others, chain.IndividualExposure{
			Who:   fmt.Sprintf("%s-n%d", id, i),
			Value: math.NewInt(int64(i + 1)),
		})
	}
	return v
}

func ids(vs []chain.ValidatorRecord) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.AccountID
	}
	return out
}

var consts = &chain.StakingConstants{MaxNominations: 2, MaxNominatorRewardedPerValidator: 3}

func TestSelectBest(t *testing.T) {
	p := NewPolicy(20)

	tests := []struct {
		name       string
		validators *chain.Validators
		consts     *chain.StakingConstants
		want       []string
	}{
		{
			name: "filters and keeps source order",
			validators: &chain.Validators{
				Current: []chain.ValidatorRecord{
					record("blocked", 0, true, 0),
					record("expensive", 200_000_000, false, 0),
					record("full", 0, false, 3),
					record("a", 199_999_999, false, 2),
				},
				Waiting: []chain.ValidatorRecord{record("b", 0, false, 0), record("c", 0, false, 0)},
			},
			consts: consts,
			want:   []string{"a", "b"},
		},
		{
			name:       "waiting only",
			validators: &chain.Validators{Waiting: []chain.ValidatorRecord{record("w", 10_000_000, false, 1)}},
			consts:     consts,
			want:       []string{"w"},
		},
		{
			name:       "nothing qualifies",
			validators: &chain.Validators{Current: []chain.ValidatorRecord{record("x", 0, true, 0)}},
			consts:     consts,
			want:       []string{},
		},
		{
			name:   "absent validators",
			consts: consts,
			want:   []string{},
		},
		{
			name:       "absent constants",
			validators: &chain.Validators{Current: []chain.ValidatorRecord{record("a", 0, false, 0)}},
			want:       []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.SelectBest(tt.validators, tt.consts)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSelectBestProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := NewPolicy(20)

	for round := 0; round < 200; round++ {
		c := &chain.StakingConstants{
			MaxNominations:                   uint32(rng.Intn(24)),
			MaxNominatorRewardedPerValidator: uint32(rng.Intn(8)),
		}
		vs := &chain.Validators{}
		n := rng.Intn(60)
		for i := 0; i < n; i++ {
			v := record(fmt.Sprintf("v%d", i), uint32(rng.Intn(1_000_000_001)), rng.Intn(5) == 0, rng.Intn(10))
			if rng.Intn(2) == 0 {
				vs.Current = append(vs.Current, v)
			} else {
				vs.Waiting = append(vs.Waiting, v)
			}
		}

		got := p.SelectBest(vs, c)
		require.LessOrEqual(t, len(got), int(c.MaxNominations))
		for _, v := range got {
			assert.False(t, v.ValidatorPrefs.Blocked)
			assert.Less(t, float64(v.ValidatorPrefs.Commission)/chain.PerbillToPercent, 20.0)
			assert.Less(t, len(v.Exposure.Others), int(c.MaxNominatorRewardedPerValidator))
		}

		// everything selected is a prefix of the acceptable validators
		var acceptable []string
		for _, v := range vs.All() {
			if p.Acceptable(v, c) {
				acceptable = append(acceptable, v.AccountID)
			}
		}
		if len(got) > 0 {
			assert.Equal(t, acceptable[:len(got)], ids(got))
		}
	}
}

func TestNewPolicyDefault(t *testing.T) {
	assert.Equal(t, float64(DefaultMaxAcceptedCommission), NewPolicy(0).MaxAcceptedCommission)
	assert.Equal(t, 5.0, NewPolicy(5).MaxAcceptedCommission)
}

func TestCommissionPercent(t *testing.T) {
	assert.Equal(t, 0.0, CommissionPercent(record("a", 1, false, 0)))
	assert.Equal(t, 0.0, CommissionPercent(record("a", 0, false, 0)))
	assert.Equal(t, 5.0, CommissionPercent(record("a", 50_000_000, false, 0)))
	assert.Equal(t, 100.0, CommissionPercent(record("a", 1_000_000_000, false, 0)))
}

func TestOversubscribed(t *testing.T) {
	vs := []chain.ValidatorRecord{record("a", 0, false, 3), record("b", 0, false, 4), record("c", 0, false, 9)}
	assert.False(t, Oversubscribed(vs[0], consts))
	assert.True(t, Oversubscribed(vs[1], consts))
	assert.Equal(t, 2, CountOversubscribed(vs, consts))
	assert.Zero(t, CountOversubscribed(vs, nil))
}

func TestActiveValidatorAndResolve(t *testing.T) {
	all := &chain.Validators{
		Current: []chain.ValidatorRecord{record("a", 0, false, 2), record("b", 0, false, 1)},
		Waiting: []chain.ValidatorRecord{record("c", 0, false, 0)},
	}
	nominated := ResolveNominated(all, []string{"c", "b", "missing"})
	assert.Equal(t, []string{"b", "c"}, ids(nominated))

	active, ok := ActiveValidator(nominated, "b-n0")
	require.True(t, ok)
	assert.Equal(t, "b", active.AccountID)

	_, ok = ActiveValidator(nominated, "a-n0")
	assert.False(t, ok)

	assert.Empty(t, ResolveNominated(nil, []string{"a"}))
}

func TestNominatorRank(t *testing.T) {
	v := record("a", 0, false, 4) // stakes 1..4
	assert.Equal(t, 1, NominatorRank(v, "a-n3"))
	assert.Equal(t, 4, NominatorRank(v, "a-n0"))
	assert.Equal(t, 0, NominatorRank(v, "stranger"))
	// input order untouched
	assert.Equal(t, "a-n0", v.Exposure.Others[0].Who)
}
