package chain

import (
	"context"

	"github.com/pkg/errors"
)

// Querier is the read-only chain facade the staking session depends on. Every
// call is a single request/response; implementations must honour ctx.
type Querier interface {
	ChainName(ctx context.Context) (string, error)
	StakingConstants(ctx context.Context) (*StakingConstants, error)
	NominatorInfo(ctx context.Context, staker string) (*NominatorInfo, error)
	// Nominations returns the staker's targets; nil when the staker does not nominate.
	Nominations(ctx context.Context, staker string) ([]string, error)
	Validators(ctx context.Context) (*Validators, error)
	Identities(ctx context.Context, accountIDs []string) ([]Identity, error)
	CurrentEra(ctx context.Context) (uint32, error)
	Ledger(ctx context.Context, staker string) (*Ledger, error)
	RewardsSlashes(ctx context.Context, staker string, page, row int) ([]RewardInfo, error)
	NeedsRebag(ctx context.Context, staker string) (*RebagInfo, error)
	NeedsPutInFrontOf(ctx context.Context, staker string) (*PutInFrontInfo, error)
}

// StakingSource serves everything read from chain state.
type StakingSource interface {
	ChainName(ctx context.Context) (string, error)
	StakingConstants(ctx context.Context) (*StakingConstants, error)
	NominatorInfo(ctx context.Context, staker string) (*NominatorInfo, error)
	Nominations(ctx context.Context, staker string) ([]string, error)
	Validators(ctx context.Context) (*Validators, error)
	Identities(ctx context.Context, accountIDs []string) ([]Identity, error)
	CurrentEra(ctx context.Context) (uint32, error)
	Ledger(ctx context.Context, staker string) (*Ledger, error)
	NeedsRebag(ctx context.Context, staker string) (*RebagInfo, error)
	NeedsPutInFrontOf(ctx context.Context, staker string) (*PutInFrontInfo, error)
}

// RewardSource serves reward and slash history, which chain state does not index.
type RewardSource interface {
	RewardsSlashes(ctx context.Context, staker string, page, row int) ([]RewardInfo, error)
}

// ErrNoRewardSource is returned by a Facade built without a RewardSource.
var ErrNoRewardSource = errors.New("no reward source configured")

// Facade joins a StakingSource and an optional RewardSource into a Querier.
type Facade struct {
	StakingSource
	rewards RewardSource
}

var _ Querier = (*Facade)(nil)

// NewFacade builds a Querier. rewards may be nil.
func NewFacade(staking StakingSource, rewards RewardSource) *Facade {
	return &Facade{StakingSource: staking, rewards: rewards}
}

func (f *Facade) RewardsSlashes(ctx context.Context, staker string, page, row int) ([]RewardInfo, error) {
	if f.rewards == nil {
		return nil, ErrNoRewardSource
	}
	return f.rewards.RewardsSlashes(ctx, staker, page, row)
}
