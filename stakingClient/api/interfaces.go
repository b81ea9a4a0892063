package api

import (
	"cosmossdk.io/math"

	"github.com/pushchain/easystake/stakingClient/chain"
	"github.com/pushchain/easystake/stakingClient/staking"
)

// StakingSession defines the session methods needed by the API server
type StakingSession interface {
	ChainName() string
	Snapshot() staking.Snapshot
	SelectedValidators() []chain.ValidatorRecord
	Validator(accountID string) (staking.ValidatorDetail, bool)

	Stake(a staking.Action, amount math.Int, ids ...string) error
	HandleNextToUnstake(amount math.Int) error
	HandleStopNominating() error
	HandleRebag() error
	HandleWithdrawUnbound() error
	HandleSelectValidators(setNominees bool, ids ...string) error
	SetManualValidators(ids []string) error
	Cancel() staking.Action
	Action() staking.Action
	AmountToConfirm() math.Int
	Prepare() (staking.Confirmation, error)
	Confirm(done func(staking.ConfirmResult)) error
	Pending() []string
}
