// Package selection picks validators to nominate from a validator set.
package selection

import (
	"sort"

	"cosmossdk.io/math"

	"github.com/pushchain/easystake/stakingClient/chain"
)

// DefaultMaxAcceptedCommission is the commission cap in percent.
const DefaultMaxAcceptedCommission = 20

// Policy filters validators by the automatic-selection rules.
type Policy struct {
	// MaxAcceptedCommission in percent; validators at or above it are rejected.
	MaxAcceptedCommission float64
}

func NewPolicy(maxAcceptedCommission float64) Policy {
	if maxAcceptedCommission <= 0 {
		maxAcceptedCommission = DefaultMaxAcceptedCommission
	}
	return Policy{MaxAcceptedCommission: maxAcceptedCommission}
}

// Acceptable reports whether v passes every filter: not blocked, commission
// below the cap and not oversubscribed.
func (p Policy) Acceptable(v chain.ValidatorRecord, consts *chain.StakingConstants) bool {
	if consts == nil {
		return false
	}
	return !v.ValidatorPrefs.Blocked &&
		float64(v.ValidatorPrefs.Commission)/chain.PerbillToPercent < p.MaxAcceptedCommission &&
		uint64(len(v.Exposure.Others)) < uint64(consts.MaxNominatorRewardedPerValidator)
}

// SelectBest returns the first MaxNominations acceptable validators of
// current followed by waiting, keeping source order.
func (p Policy) SelectBest(validators *chain.Validators, consts *chain.StakingConstants) []chain.ValidatorRecord {
	if validators == nil || consts == nil {
		return []chain.ValidatorRecord{}
	}
	selected := make([]chain.ValidatorRecord, 0, consts.MaxNominations)
	for _, v := range validators.All() {
		if uint32(len(selected)) >= consts.MaxNominations {
			break
		}
		if p.Acceptable(v, consts) {
			selected = append(selected, v)
		}
	}
	return selected
}

// CommissionPercent returns the commission shown for a validator. A commission
// of exactly one perbill is shown as zero.
func CommissionPercent(v chain.ValidatorRecord) float64 {
	if v.ValidatorPrefs.Commission == 1 {
		return 0
	}
	return float64(v.ValidatorPrefs.Commission) / chain.PerbillToPercent
}

// Oversubscribed reports whether more nominators back v than are rewarded.
func Oversubscribed(v chain.ValidatorRecord, consts *chain.StakingConstants) bool {
	return consts != nil && uint64(len(v.Exposure.Others)) > uint64(consts.MaxNominatorRewardedPerValidator)
}

// CountOversubscribed counts oversubscribed validators among vs.
func CountOversubscribed(vs []chain.ValidatorRecord, consts *chain.StakingConstants) int {
	n := 0
	for _, v := range vs {
		if Oversubscribed(v, consts) {
			n++
		}
	}
	return n
}

// ActiveValidator returns the first validator whose exposure lists staker.
func ActiveValidator(vs []chain.ValidatorRecord, staker string) (chain.ValidatorRecord, bool) {
	for _, v := range vs {
		if v.IsNominatedBy(staker) {
			return v, true
		}
	}
	return chain.ValidatorRecord{}, false
}

// ResolveNominated returns the records of ids found in validators, in
// current-then-waiting order.
func ResolveNominated(validators *chain.Validators, ids []string) []chain.ValidatorRecord {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]chain.ValidatorRecord, 0, len(ids))
	for _, v := range validators.All() {
		if _, ok := want[v.AccountID]; ok {
			out = append(out, v)
		}
	}
	return out
}

// NominatorRank returns staker's 1-based position among v's nominators ordered
// by stake, largest first, or 0 when staker does not back v.
func NominatorRank(v chain.ValidatorRecord, staker string) int {
	others := append([]chain.IndividualExposure(nil), v.Exposure.Others...)
	sort.SliceStable(others, func(i, j int) bool {
		return amount(others[i].Value).GT(amount(others[j].Value))
	})
	for i, o := range others {
		if o.Who == staker {
			return i + 1
		}
	}
	return 0
}

func amount(v math.Int) math.Int {
	if v.IsNil() {
		return math.ZeroInt()
	}
	return v
}
