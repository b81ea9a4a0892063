// Package chain defines the staking data fetched from a Substrate chain and the
// query facade the staking session reads it through.
package chain

import (
	"strings"

	"cosmossdk.io/math"
)

// PerbillToPercent converts a perbill commission (parts per 10^9) to percent.
const PerbillToPercent = 10_000_000

// ValidatorPrefs are the preferences a validator registered with.
type ValidatorPrefs struct {
	Commission uint32 `json:"commission"` // perbill
	Blocked    bool   `json:"blocked"`
}

// IndividualExposure is one nominator's backing of a validator.
type IndividualExposure struct {
	Who   string   `json:"who"`
	Value math.Int `json:"value"`
}

// Exposure is the stake backing a validator in an era.
type Exposure struct {
	Own    math.Int             `json:"own"`
	Total  math.Int             `json:"total"`
	Others []IndividualExposure `json:"others"`
}

// ValidatorRecord is an immutable snapshot of one validator.
type ValidatorRecord struct {
	AccountID      string         `json:"accountId"`
	ValidatorPrefs ValidatorPrefs `json:"validatorPrefs"`
	Exposure       Exposure       `json:"exposure"`
}

// Nominators returns the number of nominators exposed on the validator.
func (v ValidatorRecord) Nominators() int {
	return len(v.Exposure.Others)
}

// IsNominatedBy reports whether staker appears in the validator's exposure.
func (v ValidatorRecord) IsNominatedBy(staker string) bool {
	for _, o := range v.Exposure.Others {
		if o.Who == staker {
			return true
		}
	}
	return false
}

// Validators is the validator set of an era: the active ones first, then the
// waiting candidates.
type Validators struct {
	CurrentEraIndex uint32            `json:"currentEraIndex"`
	Current         []ValidatorRecord `json:"current"`
	Waiting         []ValidatorRecord `json:"waiting"`
}

// All returns current followed by waiting, in source order.
func (v *Validators) All() []ValidatorRecord {
	if v == nil {
		return nil
	}
	all := make([]ValidatorRecord, 0, len(v.Current)+len(v.Waiting))
	all = append(all, v.Current...)
	return append(all, v.Waiting...)
}

// Find returns the validator with the given account id.
func (v *Validators) Find(accountID string) (ValidatorRecord, bool) {
	for _, r := range v.All() {
		if r.AccountID == accountID {
			return r, true
		}
	}
	return ValidatorRecord{}, false
}

// StakingConstants are the chain parameters that bound staking actions.
type StakingConstants struct {
	BondingDuration                  uint32   `json:"bondingDuration"`
	ExistentialDeposit               math.Int `json:"existentialDeposit"`
	MaxNominations                   uint32   `json:"maxNominations"`
	MaxNominatorRewardedPerValidator uint32   `json:"maxNominatorRewardedPerValidator"`
	MinNominatorBond                 math.Int `json:"minNominatorBond"`
	MinCreateBond                    math.Int `json:"minCreateBond"`
	MinJoinBond                      math.Int `json:"minJoinBond"`
}

// NominatorInfo describes the staker's standing among nominators.
type NominatorInfo struct {
	MinNominated math.Int `json:"minNominated"`
	IsInList     bool     `json:"isInList"`
}

// Identity is the on-chain identity of an account, reduced to what is displayed.
type Identity struct {
	AccountID string `json:"accountId"`
	Display   string `json:"display,omitempty"`
	Email     string `json:"email,omitempty"`
	Web       string `json:"web,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Riot      string `json:"riot,omitempty"`
	Legal     string `json:"legal,omitempty"`
}

// UnlockChunk is stake scheduled to unlock at Era.
type UnlockChunk struct {
	Value math.Int `json:"value"`
	Era   uint32   `json:"era"`
}

// Ledger is the bonded stake of a stash.
type Ledger struct {
	Stash     string        `json:"stash"`
	Total     math.Int      `json:"total"`
	Active    math.Int      `json:"active"`
	Unlocking []UnlockChunk `json:"unlocking"`
}

// Redeemable sums the chunks unlocked at or before era.
func (l *Ledger) Redeemable(era uint32) math.Int {
	sum := math.ZeroInt()
	if l == nil {
		return sum
	}
	for _, c := range l.Unlocking {
		if c.Era <= era && !c.Value.IsNil() {
			sum = sum.Add(c.Value)
		}
	}
	return sum
}

// TotalUnlocking sums every unlocking chunk.
func (l *Ledger) TotalUnlocking() math.Int {
	sum := math.ZeroInt()
	if l == nil {
		return sum
	}
	for _, c := range l.Unlocking {
		if !c.Value.IsNil() {
			sum = sum.Add(c.Value)
		}
	}
	return sum
}

// RewardInfo is one reward or slash event of the staker.
type RewardInfo struct {
	Era       uint32   `json:"era"`
	Reward    math.Int `json:"reward"`
	TimeStamp int64    `json:"timeStamp,omitempty"`
	Event     string   `json:"event,omitempty"`
}

// RebagInfo tells whether the staker's voter list node sits in a lower bag than
// its stake qualifies for.
type RebagInfo struct {
	ShouldRebag    bool     `json:"shouldRebag"`
	CurrentUpper   math.Int `json:"currentUpper"`
	ThresholdUpper math.Int `json:"thresholdUpper"`
}

// PutInFrontInfo names a lighter node ahead of the staker in its bag, if any.
type PutInFrontInfo struct {
	ShouldPutInFront bool   `json:"shouldPutInFront"`
	Lighter          string `json:"lighter,omitempty"`
}

// NormalizeName strips the " Relay Chain" suffix chains report for their name.
func NormalizeName(name string) string {
	return strings.TrimSpace(strings.Replace(name, " Relay Chain", "", 1))
}
