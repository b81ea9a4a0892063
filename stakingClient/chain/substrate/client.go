// Package substrate implements chain.StakingSource over a Substrate node's JSON-RPC.
package substrate

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"cosmossdk.io/math"
	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/xxhash"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pushchain/easystake/stakingClient/chain"
	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
	"github.com/pushchain/easystake/stakingClient/ss58"
)

const (
	// keys per state_queryStorageAt request
	queryBatchSize   = 256
	// batches in flight at once
	queryConcurrency = 4

	defaultMaxNominations        = 16
	defaultMaxNominatorsRewarded = 512
)

// Client reads staking state from one node. It is safe for concurrent use.
type Client struct {
	api    *gsrpc.SubstrateAPI
	url    string
	prefix uint16
	logger zerolog.Logger

	mu   sync.RWMutex
	meta *types.Metadata
}

var _ chain.StakingSource = (*Client)(nil)

// Dial connects to the first reachable endpoint and loads its metadata.
func Dial(ctx context.Context, urls []string, prefix uint16, logger zerolog.Logger) (*Client, error) {
	if len(urls) == 0 {
		return nil, stakingerrors.NewConfigError("", "no websocket endpoints configured")
	}
	logger = logger.With().Str("component", "substrate_client").Logger()

	errs := stakingerrors.NewErrorGroup()
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		c, err := dial(ctx, url, prefix, logger)
		if err != nil {
			logger.Warn().Err(err).Str("url", url).Msg("endpoint unreachable")
			errs.Add(err)
			continue
		}
		logger.Info().
			Str("url", url).
			Dur("took", time.Since(start)).
			Msg("connected")
		return c, nil
	}
	return nil, stakingerrors.NewNetworkError("", "no endpoint reachable", errs.ErrOrNil())
}

func dial(ctx context.Context, url string, prefix uint16, logger zerolog.Logger) (*Client, error) {
	api, err := callCtx(ctx, func() (*gsrpc.SubstrateAPI, error) { return gsrpc.NewSubstrateAPI(url) })
	if err != nil {
		return nil, err
	}
	meta, err := callCtx(ctx, api.RPC.State.GetMetadataLatest)
	if err != nil {
		api.Client.Close()
		return nil, stakingerrors.NewRPCError("", "failed to load metadata", err)
	}
	return &Client{api: api, url: url, prefix: prefix, logger: logger.With().Str("url", url).Logger(), meta: meta}, nil
}

// Close releases the websocket connection.
func (c *Client) Close() {
	c.api.Client.Close()
}

// RefreshMetadata reloads runtime metadata, needed after a runtime upgrade.
func (c *Client) RefreshMetadata(ctx context.Context) error {
	meta, err := callCtx(ctx, c.api.RPC.State.GetMetadataLatest)
	if err != nil {
		return stakingerrors.NewRPCError("", "failed to refresh metadata", err)
	}
	c.mu.Lock()
	c.meta = meta
	c.mu.Unlock()
	return nil
}

func (c *Client) metadata() *types.Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta
}

// callCtx runs a blocking RPC call and gives up when ctx is done. The call
// itself is not interruptible and finishes in the background.
func callCtx[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}

func (c *Client) storageKey(module, method string, args ...[]byte) (types.StorageKey, error) {
	key, err := types.CreateStorageKey(c.metadata(), module, method, args...)
	if err != nil {
		return nil, stakingerrors.NewRPCError("", fmt.Sprintf("no storage %s.%s", module, method), err)
	}
	return key, nil
}

// raw reads one storage value; nil when the key is absent.
func (c *Client) raw(ctx context.Context, module, method string, args ...[]byte) ([]byte, error) {
	key, err := c.storageKey(module, method, args...)
	if err != nil {
		return nil, err
	}
	data, err := callCtx(ctx, func() (*types.StorageDataRaw, error) { return c.api.RPC.State.GetStorageRawLatest(key) })
	if err != nil {
		return nil, stakingerrors.NewRPCError("", fmt.Sprintf("failed to read %s.%s", module, method), err)
	}
	if data == nil || len(*data) == 0 {
		return nil, nil
	}
	return *data, nil
}

// rawMany reads many keys in batches, returning values by hex key. Absent keys are omitted.
func (c *Client) rawMany(ctx context.Context, keys []types.StorageKey) (map[string][]byte, error) {
	var mu sync.Mutex
	out := make(map[string][]byte, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(queryConcurrency)
	for start := 0; start < len(keys); start += queryBatchSize {
		batch := keys[start:min(start+queryBatchSize, len(keys))]
		g.Go(func() error {
			sets, err := callCtx(gctx, func() ([]types.StorageChangeSet, error) {
				return c.api.RPC.State.QueryStorageAtLatest(batch)
			})
			if err != nil {
				return stakingerrors.NewRPCError("", "failed to query storage batch", err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, set := range sets {
				for _, change := range set.Changes {
					if change.HasStorageData && len(change.StorageData) > 0 {
						out[change.StorageKey.Hex()] = change.StorageData
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// keys lists every key under a storage map.
func (c *Client) keys(ctx context.Context, module, method string) ([]types.StorageKey, error) {
	prefix := mapPrefix(module, method)
	keys, err := callCtx(ctx, func() ([]types.StorageKey, error) { return c.api.RPC.State.GetKeysLatest(prefix) })
	if err != nil {
		return nil, stakingerrors.NewRPCError("", fmt.Sprintf("failed to list %s.%s", module, method), err)
	}
	return keys, nil
}

func mapPrefix(module, method string) types.StorageKey {
	return append(twox128(module), twox128(method)...)
}

func twox128(s string) []byte {
	return xxhash.New128([]byte(s)).Sum(nil)
}

func u32Key(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func (c *Client) accountID(address string) ([]byte, error) {
	pub, _, err := ss58.Decode(address)
	if err != nil {
		return nil, stakingerrors.NewValidationError("", fmt.Sprintf("invalid address %q: %v", address, err))
	}
	return pub, nil
}

func (c *Client) u128Value(ctx context.Context, module, method string) (math.Int, error) {
	raw, err := c.raw(ctx, module, method)
	if err != nil {
		return math.Int{}, err
	}
	if len(raw) < 16 {
		return math.ZeroInt(), nil
	}
	return u128FromLE(raw[:16]), nil
}

// ChainName returns the chain name with the relay chain suffix removed.
func (c *Client) ChainName(ctx context.Context) (string, error) {
	name, err := callCtx(ctx, c.api.RPC.System.Chain)
	if err != nil {
		return "", stakingerrors.NewRPCError("", "failed to read chain name", err)
	}
	return chain.NormalizeName(string(name)), nil
}

func (c *Client) CurrentEra(ctx context.Context) (uint32, error) {
	raw, err := c.raw(ctx, "Staking", "CurrentEra")
	if err != nil {
		return 0, err
	}
	if len(raw) < 4 {
		return 0, stakingerrors.NewStateError("", "staking has no current era")
	}
	return binary.LittleEndian.Uint32(raw), nil
}

func (c *Client) StakingConstants(ctx context.Context) (*chain.StakingConstants, error) {
	meta := c.metadata()
	consts := &chain.StakingConstants{
		MaxNominations:                   defaultMaxNominations,
		MaxNominatorRewardedPerValidator: defaultMaxNominatorsRewarded,
		ExistentialDeposit:               math.ZeroInt(),
	}

	if v, err := meta.FindConstantValue("Staking", "BondingDuration"); err == nil && len(v) >= 4 {
		consts.BondingDuration = binary.LittleEndian.Uint32(v)
	}
	if v, err := meta.FindConstantValue("Staking", "MaxNominations"); err == nil && len(v) >= 4 {
		consts.MaxNominations = binary.LittleEndian.Uint32(v)
	}
	if v, err := meta.FindConstantValue("Staking", "MaxNominatorRewardedPerValidator"); err == nil && len(v) >= 4 {
		consts.MaxNominatorRewardedPerValidator = binary.LittleEndian.Uint32(v)
	} else if v, err := meta.FindConstantValue("Staking", "MaxExposurePageSize"); err == nil && len(v) >= 4 {
		consts.MaxNominatorRewardedPerValidator = binary.LittleEndian.Uint32(v)
	}
	if v, err := meta.FindConstantValue("Balances", "ExistentialDeposit"); err == nil && len(v) >= 16 {
		consts.ExistentialDeposit = u128FromLE(v[:16])
	}

	var err error
	if consts.MinNominatorBond, err = c.u128Value(ctx, "Staking", "MinNominatorBond"); err != nil {
		return nil, err
	}
	// chains without nomination pools report zero pool bonds
	if consts.MinCreateBond, err = c.u128Value(ctx, "NominationPools", "MinCreateBond"); err != nil {
		consts.MinCreateBond = math.ZeroInt()
	}
	if consts.MinJoinBond, err = c.u128Value(ctx, "NominationPools", "MinJoinBond"); err != nil {
		consts.MinJoinBond = math.ZeroInt()
	}
	return consts, nil
}

func (c *Client) Nominations(ctx context.Context, staker string) ([]string, error) {
	id, err := c.accountID(staker)
	if err != nil {
		return nil, err
	}
	raw, err := c.raw(ctx, "Staking", "Nominators", id)
	if err != nil || raw == nil {
		return nil, err
	}
	targets, err := decodeNominations(raw, c.prefix)
	if err != nil {
		return nil, stakingerrors.NewDecodeError("", "malformed nominations", err)
	}
	return targets, nil
}

func (c *Client) Ledger(ctx context.Context, staker string) (*chain.Ledger, error) {
	id, err := c.accountID(staker)
	if err != nil {
		return nil, err
	}
	controller, err := c.raw(ctx, "Staking", "Bonded", id)
	if err != nil {
		return nil, err
	}
	if len(controller) < accountIDLen {
		// not bonded
		return nil, nil
	}
	raw, err := c.raw(ctx, "Staking", "Ledger", controller[:accountIDLen])
	if err != nil || raw == nil {
		return nil, err
	}
	ledger, err := decodeLedger(raw, c.prefix)
	if err != nil {
		return nil, stakingerrors.NewDecodeError("", "malformed staking ledger", err)
	}
	return ledger, nil
}

func (c *Client) NominatorInfo(ctx context.Context, staker string) (*chain.NominatorInfo, error) {
	id, err := c.accountID(staker)
	if err != nil {
		return nil, err
	}
	minActive, err := c.u128Value(ctx, "Staking", "MinimumActiveStake")
	if err != nil {
		return nil, err
	}
	node, err := c.raw(ctx, "VoterList", "ListNodes", id)
	if err != nil {
		return nil, err
	}
	return &chain.NominatorInfo{MinNominated: minActive, IsInList: node != nil}, nil
}

// Validators returns the session's active validators as current, every other
// registered validator as waiting, with prefs and current-era exposure.
func (c *Client) Validators(ctx context.Context) (*chain.Validators, error) {
	era, err := c.CurrentEra(ctx)
	if err != nil {
		return nil, err
	}

	sessionRaw, err := c.raw(ctx, "Session", "Validators")
	if err != nil {
		return nil, err
	}
	active, err := decodeAccountIDs(sessionRaw, c.prefix)
	if err != nil {
		return nil, stakingerrors.NewDecodeError("", "malformed session validators", err)
	}

	keys, err := c.keys(ctx, "Staking", "Validators")
	if err != nil {
		return nil, err
	}
	prefs, err := c.rawMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	// Twox64Concat keys end with the raw account id
	registered := make(map[string]chain.ValidatorPrefs, len(keys))
	for _, k := range keys {
		if len(k) < accountIDLen {
			continue
		}
		addr, err := ss58.Encode(k[len(k)-accountIDLen:], c.prefix)
		if err != nil {
			continue
		}
		p, err := decodePrefs(prefs[k.Hex()])
		if err != nil {
			c.logger.Debug().Err(err).Str("validator", addr).Msg("skipping undecodable prefs")
			continue
		}
		registered[addr] = p
	}

	current, err := c.exposures(ctx, era, active, registered)
	if err != nil {
		return nil, err
	}

	isActive := make(map[string]bool, len(active))
	for _, a := range active {
		isActive[a] = true
	}
	waitingIDs := make([]string, 0, len(registered))
	for addr := range registered {
		if !isActive[addr] {
			waitingIDs = append(waitingIDs, addr)
		}
	}
	sort.Strings(waitingIDs)
	waiting := make([]chain.ValidatorRecord, 0, len(waitingIDs))
	for _, addr := range waitingIDs {
		waiting = append(waiting, chain.ValidatorRecord{
			AccountID:      addr,
			ValidatorPrefs: registered[addr],
			Exposure:       chain.Exposure{Own: math.ZeroInt(), Total: math.ZeroInt(), Others: []chain.IndividualExposure{}},
		})
	}

	c.logger.Debug().
		Uint32("era", era).
		Int("current", len(current)).
		Int("waiting", len(waiting)).
		Msg("validators fetched")
	return &chain.Validators{CurrentEraIndex: era, Current: current, Waiting: waiting}, nil
}

func (c *Client) exposures(ctx context.Context, era uint32, active []string, prefs map[string]chain.ValidatorPrefs) ([]chain.ValidatorRecord, error) {
	keys := make([]types.StorageKey, 0, len(active))
	ids := make([][]byte, 0, len(active))
	for _, addr := range active {
		id, err := c.accountID(addr)
		if err != nil {
			return nil, err
		}
		key, err := c.storageKey("Staking", "ErasStakers", u32Key(era), id)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		ids = append(ids, id)
	}
	values, err := c.rawMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	records := make([]chain.ValidatorRecord, 0, len(active))
	for i, addr := range active {
		rec := chain.ValidatorRecord{AccountID: addr, ValidatorPrefs: prefs[addr]}
		if raw, ok := values[keys[i].Hex()]; ok {
			exp, err := decodeExposure(raw, c.prefix)
			if err != nil {
				return nil, stakingerrors.NewDecodeError("", "malformed exposure", err).WithContext("validator", addr)
			}
			rec.Exposure = exp
		} else {
			exp, err := c.pagedExposure(ctx, era, ids[i])
			if err != nil {
				return nil, err
			}
			rec.Exposure = exp
		}
		records = append(records, rec)
	}
	return records, nil
}

// pagedExposure assembles an exposure from ErasStakersOverview and its pages,
// used by runtimes that no longer populate ErasStakers.
func (c *Client) pagedExposure(ctx context.Context, era uint32, id []byte) (chain.Exposure, error) {
	empty := chain.Exposure{Own: math.ZeroInt(), Total: math.ZeroInt(), Others: []chain.IndividualExposure{}}
	overview, err := c.raw(ctx, "Staking", "ErasStakersOverview", u32Key(era), id)
	if err != nil || overview == nil {
		// runtimes without paged exposure
		if err != nil && stakingerrors.IsStakingError(err, stakingerrors.ErrCodeRPC) {
			return empty, nil
		}
		return empty, err
	}
	total, own, pages, err := decodeOverview(overview)
	if err != nil {
		return empty, stakingerrors.NewDecodeError("", "malformed exposure overview", err)
	}
	exp := chain.Exposure{Own: own, Total: total, Others: []chain.IndividualExposure{}}
	for page := uint32(0); page < pages; page++ {
		raw, err := c.raw(ctx, "Staking", "ErasStakersPaged", u32Key(era), id, u32Key(page))
		if err != nil {
			return empty, err
		}
		if raw == nil {
			continue
		}
		others, err := decodeExposurePage(raw, c.prefix)
		if err != nil {
			return empty, stakingerrors.NewDecodeError("", "malformed exposure page", err)
		}
		exp.Others = append(exp.Others, others...)
	}
	return exp, nil
}

// Identities returns the registered identities among accountIDs, skipping
// accounts without one.
func (c *Client) Identities(ctx context.Context, accountIDs []string) ([]chain.Identity, error) {
	keys := make([]types.StorageKey, 0, len(accountIDs))
	for _, addr := range accountIDs {
		id, err := c.accountID(addr)
		if err != nil {
			return nil, err
		}
		key, err := c.storageKey("Identity", "IdentityOf", id)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	values, err := c.rawMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	identities := make([]chain.Identity, 0, len(values))
	for i, addr := range accountIDs {
		raw, ok := values[keys[i].Hex()]
		if !ok {
			continue
		}
		ident, err := decodeRegistration(raw, addr)
		if err != nil {
			c.logger.Debug().Err(err).Str("account", addr).Msg("partial identity")
		}
		identities = append(identities, ident)
	}
	return identities, nil
}

func (c *Client) listNode(ctx context.Context, id []byte) (listNode, bool, error) {
	raw, err := c.raw(ctx, "VoterList", "ListNodes", id)
	if err != nil || raw == nil {
		return listNode{}, false, err
	}
	node, err := decodeListNode(raw)
	if err != nil {
		return listNode{}, false, stakingerrors.NewDecodeError("", "malformed voter list node", err)
	}
	return node, true, nil
}

func (c *Client) NeedsRebag(ctx context.Context, staker string) (*chain.RebagInfo, error) {
	id, err := c.accountID(staker)
	if err != nil {
		return nil, err
	}
	node, ok, err := c.listNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &chain.RebagInfo{ShouldRebag: false, CurrentUpper: math.ZeroInt(), ThresholdUpper: math.ZeroInt()}, nil
	}

	raw, err := c.metadata().FindConstantValue("VoterList", "BagThresholds")
	if err != nil {
		return nil, stakingerrors.NewRPCError("", "no VoterList.BagThresholds constant", err)
	}
	thresholds, err := decodeThresholds(raw)
	if err != nil {
		return nil, stakingerrors.NewDecodeError("", "malformed bag thresholds", err)
	}
	upper := bagUpperFor(thresholds, node.Score)
	return &chain.RebagInfo{
		ShouldRebag:    upper != node.BagUpper,
		CurrentUpper:   math.NewIntFromUint64(node.BagUpper),
		ThresholdUpper: math.NewIntFromUint64(upper),
	}, nil
}

func (c *Client) NeedsPutInFrontOf(ctx context.Context, staker string) (*chain.PutInFrontInfo, error) {
	id, err := c.accountID(staker)
	if err != nil {
		return nil, err
	}
	self, ok, err := c.listNode(ctx, id)
	if err != nil || !ok {
		return &chain.PutInFrontInfo{}, err
	}
	bag, err := c.raw(ctx, "VoterList", "ListBags", binary.LittleEndian.AppendUint64(nil, self.BagUpper))
	if err != nil || bag == nil {
		return &chain.PutInFrontInfo{}, err
	}
	head, err := decodeBagHead(bag)
	if err != nil {
		return nil, stakingerrors.NewDecodeError("", "malformed bag", err)
	}

	var lookupErr error
	lighter, found := findLighter(head, self, func(id []byte) (listNode, bool) {
		n, ok, err := c.listNode(ctx, id)
		if err != nil {
			lookupErr = err
		}
		return n, ok
	})
	if lookupErr != nil {
		return nil, lookupErr
	}
	if !found {
		return &chain.PutInFrontInfo{}, nil
	}
	addr, err := ss58.Encode(lighter, c.prefix)
	if err != nil {
		return nil, err
	}
	return &chain.PutInFrontInfo{ShouldPutInFront: true, Lighter: addr}, nil
}
