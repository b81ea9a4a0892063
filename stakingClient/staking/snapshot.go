package staking

import (
	"cosmossdk.io/math"

	"github.com/pushchain/easystake/stakingClient/chain"
	"github.com/pushchain/easystake/stakingClient/selection"
)

// Snapshot is a read-only copy of everything the staking screen shows.
type Snapshot struct {
	Staker     string `json:"staker"`
	ChainName  string `json:"chainName"`
	Action     Action `json:"action"`
	PendingOps int    `json:"pendingRelays"`

	StakingConsts  Source[*chain.StakingConstants] `json:"stakingConsts"`
	NominatorInfo  Source[*chain.NominatorInfo]    `json:"nominatorInfo"`
	Nominated      Source[[]chain.ValidatorRecord] `json:"nominatedValidators"`
	Validators     Source[*chain.Validators]       `json:"validatorsInfo"`
	Identities     Source[[]chain.Identity]        `json:"validatorsIdentities"`
	CurrentEra     Source[uint32]                  `json:"currentEraIndex"`
	Ledger         Source[*chain.Ledger]           `json:"ledger"`
	Rebag          Source[*chain.RebagInfo]        `json:"rebagInfo"`
	PutInFront     Source[*chain.PutInFrontInfo]   `json:"putInFrontInfo"`
	Selected       []chain.ValidatorRecord         `json:"selectedValidators"`
	RewardsSlashes []chain.RewardInfo              `json:"rewardSlashes"`
	LastConfirm    *ConfirmResult                  `json:"lastConfirm,omitempty"`

	ValidatorsUpdated bool     `json:"validatorsInfoIsUpdated"`
	StoreIsUpdated    bool     `json:"storeIsUpdated"`
	Oversubscribed    int      `json:"oversubscribedsCount"`
	ActiveValidator   string   `json:"activeValidator,omitempty"`
	AmountToConfirm   math.Int `json:"amountToConfirm"`
	Redeemable        math.Int `json:"redeemable"`
	Unlocking         math.Int `json:"unlocking"`
	TotalReward       math.Int `json:"totalReceivedReward"`
	MinStakeable      math.Int `json:"minStakeable"`

	// NextToStakeBusy is set while a stake action waits for the ledger or fresh validators.
	NextToStakeBusy bool `json:"nextToStakeButtonBusy"`
}

// Snapshot copies the current session state and derives the figures shown
// alongside it.
func (s *Session) Snapshot() Snapshot {
	pending := s.relays.Len()

	s.mu.RLock()
	defer s.mu.RUnlock()
	action := s.machine.Current()

	snap := Snapshot{
		Staker:            s.cfg.Staker,
		ChainName:         s.chainName,
		Action:            action,
		PendingOps:        pending,
		StakingConsts:     s.consts,
		NominatorInfo:     s.nominatorInfo,
		Nominated:         s.nominated,
		Validators:        s.validators,
		Identities:        s.identities,
		CurrentEra:        s.currentEra,
		Ledger:            s.ledger,
		Rebag:             s.rebag,
		PutInFront:        s.putInFront,
		Selected:          append([]chain.ValidatorRecord{}, s.selected...),
		RewardsSlashes:    append([]chain.RewardInfo{}, s.rewards...),
		LastConfirm:       s.lastConfirm,
		ValidatorsUpdated: s.validatorsUpdated,
		Redeemable:        s.redeemableLocked(),
		TotalReward:       math.ZeroInt(),
	}

	if era, ok := s.currentEra.Get(); ok && s.storeEra != 0 {
		snap.StoreIsUpdated = era == s.storeEra
	}

	consts, _ := s.consts.Get()
	snap.MinStakeable = MinStakeable(consts)
	if nominated, ok := s.nominated.Get(); ok {
		snap.Oversubscribed = selection.CountOversubscribed(nominated, consts)
		if v, ok := selection.ActiveValidator(nominated, s.cfg.Staker); ok {
			snap.ActiveValidator = v.AccountID
		}
	}

	l, _ := s.ledger.Get()
	snap.Unlocking = Unlocking(l, snap.Redeemable)
	snap.AmountToConfirm = AmountToConfirm(action, s.stakeAmount, s.unstakeAmount, snap.Redeemable)

	for _, r := range s.rewards {
		if r.Event != "Slash" && !r.Reward.IsNil() {
			snap.TotalReward = snap.TotalReward.Add(r.Reward)
		}
	}

	snap.NextToStakeBusy = action != Idle && (!s.ledger.IsLoaded() || !(s.validatorsUpdated || snap.StoreIsUpdated))
	return snap
}

// SelectedValidators returns the automatic selection.
func (s *Session) SelectedValidators() []chain.ValidatorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chain.ValidatorRecord{}, s.selected...)
}

// Validator returns one validator with its identity and the staker's rank
// among its nominators.
func (s *Session) Validator(accountID string) (ValidatorDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _ := s.validators.Get()
	rec, ok := v.Find(accountID)
	if !ok {
		return ValidatorDetail{}, false
	}
	d := ValidatorDetail{
		ValidatorRecord:   rec,
		CommissionPercent: selection.CommissionPercent(rec),
		Nominators:        rec.Nominators(),
		StakerRank:        selection.NominatorRank(rec, s.cfg.Staker),
	}
	if c, ok := s.consts.Get(); ok {
		d.Oversubscribed = selection.Oversubscribed(rec, c)
	}
	if ids, ok := s.identities.Get(); ok {
		for _, id := range ids {
			if id.AccountID == accountID {
				ident := id
				d.Identity = &ident
				break
			}
		}
	}
	return d, true
}

// ValidatorDetail is a validator as shown on its info page.
type ValidatorDetail struct {
	chain.ValidatorRecord
	Identity          *chain.Identity `json:"identity,omitempty"`
	CommissionPercent float64         `json:"commissionPercent"`
	Nominators        int             `json:"nominators"`
	StakerRank        int             `json:"stakerRank"`
	Oversubscribed    bool            `json:"oversubscribed"`
}
