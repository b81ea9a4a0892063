package staking

import (
	"cosmossdk.io/math"

	"github.com/pushchain/easystake/stakingClient/chain"
)

func orZero(v math.Int) math.Int {
	if v.IsNil() {
		return math.ZeroInt()
	}
	return v
}

// AmountToConfirm returns the amount an action moves: the unstake amount for
// unstake, the stake amount for the stake actions, the redeemable amount for
// withdrawUnbound and zero for everything else.
func AmountToConfirm(a Action, stakeAmount, unstakeAmount, redeemable math.Int) math.Int {
	switch a {
	case Unstake:
		return orZero(unstakeAmount)
	case StakeAuto, StakeManual, StakeKeepNominated:
		return orZero(stakeAmount)
	case WithdrawUnbound:
		return orZero(redeemable)
	default:
		return math.ZeroInt()
	}
}

// MinStakeable is the smallest amount that can be staked directly or through
// a nomination pool.
func MinStakeable(c *chain.StakingConstants) math.Int {
	if c == nil {
		return math.ZeroInt()
	}
	m := orZero(c.MinNominatorBond)
	for _, v := range []math.Int{c.MinCreateBond, c.MinJoinBond, c.ExistentialDeposit} {
		m = math.MaxInt(m, orZero(v))
	}
	return m
}

// Unlocking is the stake still waiting out the bonding period: all unlocking
// chunks minus what is already redeemable.
func Unlocking(l *chain.Ledger, redeemable math.Int) math.Int {
	total := l.TotalUnlocking()
	left := total.Sub(orZero(redeemable))
	if left.IsNegative() {
		return math.ZeroInt()
	}
	return left
}
