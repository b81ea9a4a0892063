package staking

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pushchain/easystake/stakingClient/chain"
)

type mockQuerier struct {
	mock.Mock
}

var _ chain.Querier = (*mockQuerier)(nil)

func (m *mockQuerier) ChainName(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockQuerier) StakingConstants(ctx context.Context) (*chain.StakingConstants, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).(*chain.StakingConstants)
	return v, args.Error(1)
}

func (m *mockQuerier) NominatorInfo(ctx context.Context, staker string) (*chain.NominatorInfo, error) {
	args := m.Called(ctx, staker)
	v, _ := args.Get(0).(*chain.NominatorInfo)
	return v, args.Error(1)
}

func (m *mockQuerier) Nominations(ctx context.Context, staker string) ([]string, error) {
	args := m.Called(ctx, staker)
	v, _ := args.Get(0).([]string)
	return v, args.Error(1)
}

func (m *mockQuerier) Validators(ctx context.Context) (*chain.Validators, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).(*chain.Validators)
	return v, args.Error(1)
}

func (m *mockQuerier) Identities(ctx context.Context, accountIDs []string) ([]chain.Identity, error) {
	args := m.Called(ctx, accountIDs)
	v, _ := args.Get(0).([]chain.Identity)
	return v, args.Error(1)
}

func (m *mockQuerier) CurrentEra(ctx context.Context) (uint32, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).(uint32)
	return v, args.Error(1)
}

func (m *mockQuerier) Ledger(ctx context.Context, staker string) (*chain.Ledger, error) {
	args := m.Called(ctx, staker)
	v, _ := args.Get(0).(*chain.Ledger)
	return v, args.Error(1)
}

func (m *mockQuerier) RewardsSlashes(ctx context.Context, staker string, page, row int) ([]chain.RewardInfo, error) {
	args := m.Called(ctx, staker, page, row)
	v, _ := args.Get(0).([]chain.RewardInfo)
	return v, args.Error(1)
}

func (m *mockQuerier) NeedsRebag(ctx context.Context, staker string) (*chain.RebagInfo, error) {
	args := m.Called(ctx, staker)
	v, _ := args.Get(0).(*chain.RebagInfo)
	return v, args.Error(1)
}

func (m *mockQuerier) NeedsPutInFrontOf(ctx context.Context, staker string) (*chain.PutInFrontInfo, error) {
	args := m.Called(ctx, staker)
	v, _ := args.Get(0).(*chain.PutInFrontInfo)
	return v, args.Error(1)
}

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Confirm(ctx context.Context, c Confirmation) error {
	return m.Called(ctx, c).Error(0)
}
