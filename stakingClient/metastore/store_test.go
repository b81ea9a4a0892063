package metastore

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/easystake/stakingClient/db"
	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
	"github.com/pushchain/easystake/stakingClient/metrics"
	"github.com/pushchain/easystake/stakingClient/store"
)

const alice = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

type consts struct {
	MaxNominations uint32 `json:"maxNominations"`
	MinBond        string `json:"minBond"`
}

func newTestStore(t *testing.T) (*Store, *db.DB) {
	t.Helper()
	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	s, err := New(database, 8, metrics.New(), zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	return s, database
}

func TestNewRejectsNilDB(t *testing.T) {
	_, err := New(nil, 8, nil, zerolog.Nop())
	require.Error(t, err)
}

func TestUpdateAndLoad(t *testing.T) {
	s, _ := newTestStore(t)

	changed, err := s.Update(alice, KeyStakingConsts, "Polkadot", consts{MaxNominations: 16, MinBond: "2500000000000"})
	require.NoError(t, err)
	assert.True(t, changed)

	var got consts
	found, err := s.Load(alice, KeyStakingConsts, "Polkadot", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint32(16), got.MaxNominations)
	assert.Equal(t, "2500000000000", got.MinBond)
}

func TestUpdateSkipsUnchangedPayload(t *testing.T) {
	s, _ := newTestStore(t)
	value := consts{MaxNominations: 16}

	changed, err := s.Update(alice, KeyStakingConsts, "Polkadot", value)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = s.Update(alice, KeyStakingConsts, "Polkadot", value)
	require.NoError(t, err)
	assert.False(t, changed)

	e, err := s.Get(alice, KeyStakingConsts)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, uint64(1), e.Version)
}

func TestUpdateOverwritesOnContentOrChainChange(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Update(alice, KeyStakingConsts, "Polkadot", consts{MaxNominations: 16})
	require.NoError(t, err)

	changed, err := s.Update(alice, KeyStakingConsts, "Polkadot", consts{MaxNominations: 24})
	require.NoError(t, err)
	assert.True(t, changed)

	// same payload, different chain
	changed, err = s.Update(alice, KeyStakingConsts, "Kusama", consts{MaxNominations: 24})
	require.NoError(t, err)
	assert.True(t, changed)

	e, err := s.Get(alice, KeyStakingConsts)
	require.NoError(t, err)
	assert.Equal(t, "Kusama", e.ChainName)
	assert.Equal(t, uint64(3), e.Version)
	assert.Equal(t, Hash([]byte(`{"maxNominations":24,"minBond":""}`)), e.Hash)
}

func TestLoadIgnoresOtherChain(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Update(alice, KeyValidatorsInfo, "Kusama", consts{MaxNominations: 24})
	require.NoError(t, err)

	var got consts
	found, err := s.Load(alice, KeyValidatorsInfo, "Polkadot", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, got.MaxNominations)
}

func TestLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)

	var got consts
	found, err := s.Load(alice, KeyNominatedValidators, "Polkadot", &got)
	require.NoError(t, err)
	assert.False(t, found)

	e, err := s.Get(alice, KeyNominatedValidators)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestLoadMalformedPayload(t *testing.T) {
	s, database := newTestStore(t)

	require.NoError(t, database.Client().Create(&store.MetaEntry{
		Account:   alice,
		Key:       string(KeyStakingConsts),
		ChainName: "Polkadot",
		MetaData:  []byte(`{"maxNominations":`),
		Version:   1,
	}).Error)

	var got consts
	found, err := s.Load(alice, KeyStakingConsts, "Polkadot", &got)
	assert.False(t, found)
	require.Error(t, err)
	assert.True(t, stakingerrors.IsStakingError(err, stakingerrors.ErrCodeDecode))
}

func TestEmptyListIsStored(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Update(alice, KeyNominatedValidators, "Polkadot", []string{"a", "b"})
	require.NoError(t, err)
	changed, err := s.Update(alice, KeyNominatedValidators, "Polkadot", []string{})
	require.NoError(t, err)
	assert.True(t, changed)

	var got []string
	found, err := s.Load(alice, KeyNominatedValidators, "Polkadot", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestEntriesAndClear(t *testing.T) {
	s, _ := newTestStore(t)
	const bob = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"

	for _, k := range Keys {
		_, err := s.Update(alice, k, "Polkadot", string(k))
		require.NoError(t, err)
	}
	_, err := s.Update(bob, KeyStakingConsts, "Polkadot", "bob")
	require.NoError(t, err)

	entries, err := s.Entries(alice)
	require.NoError(t, err)
	require.Len(t, entries, len(Keys))
	assert.Equal(t, KeyNominatedValidators, entries[0].Key)

	require.NoError(t, s.Clear(alice))

	entries, err = s.Entries(alice)
	require.NoError(t, err)
	assert.Empty(t, entries)

	e, err := s.Get(alice, KeyStakingConsts)
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = s.Get(bob, KeyStakingConsts)
	require.NoError(t, err)
	require.NotNil(t, e)

	// cleared keys can be written again despite the unique index
	changed, err := s.Update(alice, KeyStakingConsts, "Polkadot", "again")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestCacheServesReads(t *testing.T) {
	s, database := newTestStore(t)

	_, err := s.Update(alice, KeyStakingConsts, "Polkadot", consts{MaxNominations: 16})
	require.NoError(t, err)

	// drop the row behind the cache's back
	require.NoError(t, database.Client().Unscoped().Where("1 = 1").Delete(&store.MetaEntry{}).Error)

	var got consts
	found, err := s.Load(alice, KeyStakingConsts, "Polkadot", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint32(16), got.MaxNominations)
}
