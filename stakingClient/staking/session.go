// Package staking orchestrates one account's staking screen: it loads cached
// metadata, fetches fresh chain data through relays, selects validators and
// tracks the staking action until it is confirmed or cancelled.
package staking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/pushchain/easystake/stakingClient/chain"
	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
	"github.com/pushchain/easystake/stakingClient/metastore"
	"github.com/pushchain/easystake/stakingClient/metrics"
	"github.com/pushchain/easystake/stakingClient/relay"
	"github.com/pushchain/easystake/stakingClient/selection"
)

// Relay names
const (
	RelayStakingConsts  = "getStakingConsts"
	RelayNominatorInfo  = "getNominatorInfo"
	RelayNominations    = "getNominations"
	RelayValidatorsInfo = "getValidatorsInfo"
	RelayValidatorsID   = "getValidatorsId"
	RelayNeedsRebag     = "needsRebag"
	RelayPutInFrontOf   = "needsPutInFrontOf"
	RelayCurrentEra     = "getCurrentEra"
	RelayLedger         = "getLedger"
	RelayRewards        = "getRewardsSlashes"
	RelayConfirm        = "confirm"
)

const rewardsPageSize = 10

// Confirmation is a prepared staking action handed to a Confirmer.
type Confirmation struct {
	Action     Action                  `json:"action"`
	Amount     math.Int                `json:"amount"`
	Validators []chain.ValidatorRecord `json:"validators"`
	Staker     string                  `json:"staker"`
	ChainName  string                  `json:"chainName"`
}

// Confirmer signs and submits a prepared action. The session never submits
// anything itself.
type Confirmer interface {
	Confirm(ctx context.Context, c Confirmation) error
}

// ConfirmResult is the outcome of the last confirmation.
type ConfirmResult struct {
	Action Action    `json:"action"`
	Amount math.Int  `json:"amount"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// Config holds the per-session settings.
type Config struct {
	Staker                string
	ChainName             string
	MaxAcceptedCommission float64
	// RelayTimeout bounds each chain query; zero leaves queries unbounded.
	RelayTimeout time.Duration
}

// Session is safe for concurrent use.
type Session struct {
	cfg       Config
	querier   chain.Querier
	meta      *metastore.Store
	confirmer Confirmer
	policy    selection.Policy
	machine   *Machine
	relays    *relay.Group
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	mu                 sync.RWMutex
	chainName          string
	consts             Source[*chain.StakingConstants]
	nominatorInfo      Source[*chain.NominatorInfo]
	nominatedIDs       Source[[]string]
	nominated          Source[[]chain.ValidatorRecord]
	validators         Source[*chain.Validators]
	validatorsUpdated  bool
	identities         Source[[]chain.Identity]
	identitiesFetching bool
	selected           []chain.ValidatorRecord
	manual             []string
	currentEra         Source[uint32]
	storeEra           uint32
	ledger             Source[*chain.Ledger]
	rewards            []chain.RewardInfo
	rebag              Source[*chain.RebagInfo]
	putInFront         Source[*chain.PutInFrontInfo]
	stakeAmount        math.Int
	unstakeAmount      math.Int
	lastConfirm        *ConfirmResult
	confirmRelay       *relay.Handle
}

// NewSession creates a session for cfg.Staker. meta and confirmer may be nil:
// without meta nothing is cached, without confirmer Confirm fails.
func NewSession(cfg Config, q chain.Querier, meta *metastore.Store, confirmer Confirmer, m *metrics.Metrics, logger zerolog.Logger) (*Session, error) {
	if q == nil {
		return nil, stakingerrors.NewConfigError(cfg.ChainName, "chain querier is required")
	}
	if cfg.Staker == "" {
		return nil, stakingerrors.NewValidationError(cfg.ChainName, "staker address is required")
	}
	logger = logger.With().Str("component", "staking_session").Str("staker", cfg.Staker).Logger()
	return &Session{
		cfg:           cfg,
		querier:       q,
		meta:          meta,
		confirmer:     confirmer,
		policy:        selection.NewPolicy(cfg.MaxAcceptedCommission),
		machine:       NewMachine(m),
		relays:        relay.NewGroup(context.Background(), cfg.RelayTimeout, m, logger),
		metrics:       m,
		logger:        logger,
		chainName:     chain.NormalizeName(cfg.ChainName),
		stakeAmount:   math.ZeroInt(),
		unstakeAmount: math.ZeroInt(),
	}, nil
}

// Open resolves the chain name if it was not configured, restores cached
// metadata and launches the fetch relays. It does not wait for them.
func (s *Session) Open(ctx context.Context) error {
	if s.chainName == "" {
		name, err := s.querier.ChainName(ctx)
		if err != nil {
			return stakingerrors.WrapStakingError(err, stakingerrors.ErrCodeRPC, "", "failed to resolve chain name")
		}
		s.mu.Lock()
		s.chainName = name
		s.mu.Unlock()
	}

	s.restore()
	return s.Refresh()
}

// ChainName returns the chain the session reads from.
func (s *Session) ChainName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainName
}

// restore loads cached entries that belong to the current chain.
func (s *Session) restore() {
	if s.meta == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var consts chain.StakingConstants
	if s.load(metastore.KeyStakingConsts, &consts) {
		s.consts = Loaded(&consts)
	}

	var nominated []chain.ValidatorRecord
	if s.load(metastore.KeyNominatedValidators, &nominated) {
		s.nominated = Loaded(nominated)
	}

	var identities []chain.Identity
	if s.load(metastore.KeyValidatorsIdentities, &identities) {
		s.identities = Loaded(identities)
	}

	var validators chain.Validators
	if s.load(metastore.KeyValidatorsInfo, &validators) {
		s.validators = Loaded(&validators)
		s.storeEra = validators.CurrentEraIndex
		s.logger.Info().
			Uint32("era", validators.CurrentEraIndex).
			Int("current", len(validators.Current)).
			Int("waiting", len(validators.Waiting)).
			Msg("validators restored from store")
	}
	s.reselectLocked()
}

// load reads one cached entry. Decode and storage failures are logged and
// treated as a miss.
func (s *Session) load(key metastore.Key, out any) bool {
	found, err := s.meta.Load(s.cfg.Staker, key, s.chainName, out)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", string(key)).Msg("ignoring unreadable cached metadata")
		return false
	}
	return found
}

func (s *Session) save(key metastore.Key, value any) {
	if s.meta == nil {
		return
	}
	changed, err := s.meta.Update(s.cfg.Staker, key, s.chainName, value)
	if err != nil {
		s.logger.Error().Err(err).Str("key", string(key)).Msg("failed to persist metadata")
		return
	}
	if changed {
		s.logger.Debug().Str("key", string(key)).Msg("metadata saved")
	}
}

// Refresh launches one relay per chain query. Results are applied as they arrive.
func (s *Session) Refresh() error {
	staker := s.cfg.Staker
	q := s.querier

	s.mu.Lock()
	s.identitiesFetching = false
	s.mu.Unlock()

	spawns := []func() error{
		func() error {
			_, err := relay.Spawn(s.relays, RelayStakingConsts, q.StakingConstants, s.applyStakingConsts)
			return err
		},
		func() error {
			_, err := relay.Spawn(s.relays, RelayNominatorInfo, func(ctx context.Context) (*chain.NominatorInfo, error) {
				return q.NominatorInfo(ctx, staker)
			}, s.applyNominatorInfo)
			return err
		},
		func() error {
			_, err := relay.Spawn(s.relays, RelayNominations, func(ctx context.Context) ([]string, error) {
				return q.Nominations(ctx, staker)
			}, s.applyNominations)
			return err
		},
		func() error {
			_, err := relay.Spawn(s.relays, RelayNeedsRebag, func(ctx context.Context) (*chain.RebagInfo, error) {
				return q.NeedsRebag(ctx, staker)
			}, s.applyRebag)
			return err
		},
		func() error {
			_, err := relay.Spawn(s.relays, RelayPutInFrontOf, func(ctx context.Context) (*chain.PutInFrontInfo, error) {
				return q.NeedsPutInFrontOf(ctx, staker)
			}, s.applyPutInFront)
			return err
		},
		func() error {
			_, err := relay.Spawn(s.relays, RelayValidatorsInfo, q.Validators, s.applyValidators)
			return err
		},
		func() error {
			_, err := relay.Spawn(s.relays, RelayCurrentEra, q.CurrentEra, s.applyCurrentEra)
			return err
		},
		func() error {
			_, err := relay.Spawn(s.relays, RelayLedger, func(ctx context.Context) (*chain.Ledger, error) {
				return q.Ledger(ctx, staker)
			}, s.applyLedger)
			return err
		},
		func() error {
			_, err := relay.Spawn(s.relays, RelayRewards, func(ctx context.Context) ([]chain.RewardInfo, error) {
				return q.RewardsSlashes(ctx, staker, 0, rewardsPageSize)
			}, s.applyRewards)
			return err
		},
	}
	for _, spawn := range spawns {
		if err := spawn(); err != nil {
			return stakingerrors.NewStateError(s.ChainName(), "session is closed")
		}
	}
	return nil
}

func (s *Session) applyStakingConsts(c *chain.StakingConstants) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consts = Loaded(c)
	s.save(metastore.KeyStakingConsts, c)
	s.reselectLocked()
}

func (s *Session) applyNominatorInfo(info *chain.NominatorInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info == nil {
		s.nominatorInfo = Empty[*chain.NominatorInfo]()
		return
	}
	s.nominatorInfo = Loaded(info)
}

func (s *Session) applyNominations(targets []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(targets) == 0 {
		s.logger.Info().Msg("no nominations, clearing saved nominated validators")
		s.nominatedIDs = Empty[[]string]()
		s.nominated = Empty[[]chain.ValidatorRecord]()
		s.save(metastore.KeyNominatedValidators, []chain.ValidatorRecord{})
		return
	}
	s.nominatedIDs = Loaded(targets)
	s.resolveNominatedLocked()
}

func (s *Session) applyValidators(v *chain.Validators) {
	if v == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info().
		Uint32("era", v.CurrentEraIndex).
		Int("current", len(v.Current)).
		Int("waiting", len(v.Waiting)).
		Msg("validators fetched from chain")

	s.validators = Loaded(v)
	s.validatorsUpdated = true
	s.save(metastore.KeyValidatorsInfo, v)
	s.reselectLocked()
	s.resolveNominatedLocked()
	s.fetchIdentitiesLocked()
}

// fetchIdentitiesLocked starts the identity relay once fresh validators are in.
func (s *Session) fetchIdentitiesLocked() {
	v, ok := s.validators.Get()
	if !ok || !s.validatorsUpdated || len(v.Current) == 0 || s.identitiesFetching {
		return
	}
	ids := make([]string, 0, len(v.Current)+len(v.Waiting))
	for _, r := range v.All() {
		ids = append(ids, r.AccountID)
	}
	q := s.querier
	_, err := relay.Spawn(s.relays, RelayValidatorsID, func(ctx context.Context) ([]chain.Identity, error) {
		return q.Identities(ctx, ids)
	}, s.applyIdentities)
	if err != nil {
		s.logger.Debug().Err(err).Msg("identity relay not started")
		return
	}
	s.identitiesFetching = true
}

func (s *Session) applyIdentities(identities []chain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identitiesFetching = false
	if len(identities) == 0 {
		return
	}
	s.logger.Info().Int("count", len(identities)).Msg("validator identities fetched")
	s.identities = Loaded(identities)
	s.save(metastore.KeyValidatorsIdentities, identities)
}

func (s *Session) applyCurrentEra(era uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentEra = Loaded(era)
}

func (s *Session) applyLedger(l *chain.Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l == nil {
		s.ledger = Empty[*chain.Ledger]()
		return
	}
	s.ledger = Loaded(l)
}

func (s *Session) applyRewards(r []chain.RewardInfo) {
	if len(r) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards = r
}

func (s *Session) applyRebag(info *chain.RebagInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info == nil {
		s.rebag = Empty[*chain.RebagInfo]()
		return
	}
	s.rebag = Loaded(info)
}

func (s *Session) applyPutInFront(info *chain.PutInFrontInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info == nil {
		info = &chain.PutInFrontInfo{}
	}
	s.putInFront = Loaded(info)
}

func (s *Session) reselectLocked() {
	v, okV := s.validators.Get()
	c, okC := s.consts.Get()
	if !okV || !okC {
		return
	}
	s.selected = s.policy.SelectBest(v, c)
	s.metrics.SetSelected(len(s.selected))
}

func (s *Session) resolveNominatedLocked() {
	v, okV := s.validators.Get()
	ids, okN := s.nominatedIDs.Get()
	if !okV || !okN {
		return
	}
	nominated := selection.ResolveNominated(v, ids)
	s.nominated = Loaded(nominated)
	s.save(metastore.KeyNominatedValidators, nominated)
}

// redeemableLocked is the unlocked stake that can be withdrawn in the current era.
func (s *Session) redeemableLocked() math.Int {
	l, okL := s.ledger.Get()
	era, okE := s.currentEra.Get()
	if !okL || !okE {
		return math.ZeroInt()
	}
	return l.Redeemable(era)
}

// beginLocked starts a and, only if it started, runs apply. Callers hold s.mu
// so the action and its parameters become visible together.
func (s *Session) beginLocked(a Action, apply func()) error {
	if !s.machine.Begin(a) {
		current := s.machine.Current()
		s.logger.Debug().Str("action", a.String()).Str("current", current.String()).Msg("action ignored, another is in progress")
		return stakingerrors.NewStateError(s.chainName, fmt.Sprintf("action %s already in progress", current)).
			WithContext("requested", string(a))
	}
	if apply != nil {
		apply()
	}
	s.logger.Info().Str("action", a.String()).Msg("staking action started")
	return nil
}

func (s *Session) begin(a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(a, nil)
}

// Stake starts one of the stake actions with the amount to bond. ids, if
// given, are the validators picked by hand for stakeManual.
func (s *Session) Stake(a Action, amount math.Int, ids ...string) error {
	if !a.IsStake() {
		return stakingerrors.NewValidationError(s.ChainName(), fmt.Sprintf("%s is not a stake action", a))
	}
	if amount.IsNil() || !amount.IsPositive() {
		return stakingerrors.NewValidationError(s.ChainName(), "stake amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == StakeManual && len(ids) > 0 {
		if err := s.checkManualLocked(ids); err != nil {
			return err
		}
	}
	return s.beginLocked(a, func() {
		s.stakeAmount = amount
		if a == StakeManual && len(ids) > 0 {
			s.manual = append([]string(nil), ids...)
		}
	})
}

// HandleNextToUnstake starts unstaking amount.
func (s *Session) HandleNextToUnstake(amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return stakingerrors.NewValidationError(s.ChainName(), "unstake amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(Unstake, func() {
		s.unstakeAmount = amount
	})
}

// HandleStopNominating starts stopNominating.
func (s *Session) HandleStopNominating() error {
	return s.begin(StopNominating)
}

// HandleRebag starts tuneUp (rebag or put-in-front-of).
func (s *Session) HandleRebag() error {
	return s.begin(TuneUp)
}

// HandleWithdrawUnbound starts withdrawUnbound when something is redeemable.
func (s *Session) HandleWithdrawUnbound() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.redeemableLocked().IsPositive() {
		return stakingerrors.NewValidationError(s.chainName, "nothing to withdraw")
	}
	return s.beginLocked(WithdrawUnbound, nil)
}

// HandleSelectValidators starts setNominees or changeValidators. ids, if
// given, replace the validators picked by hand once the action has started.
func (s *Session) HandleSelectValidators(setNominees bool, ids ...string) error {
	a := ChangeValidators
	if setNominees {
		a = SetNominees
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) > 0 {
		if err := s.checkManualLocked(ids); err != nil {
			return err
		}
	}
	return s.beginLocked(a, func() {
		if len(ids) > 0 {
			s.manual = append([]string(nil), ids...)
		}
	})
}

func (s *Session) checkManualLocked(ids []string) error {
	limit := uint32(16)
	if c, ok := s.consts.Get(); ok {
		limit = c.MaxNominations
	}
	if len(ids) == 0 || uint32(len(ids)) > limit {
		return stakingerrors.NewValidationError(s.chainName, fmt.Sprintf("select between 1 and %d validators", limit))
	}
	return nil
}

// SetManualValidators records the validators picked by hand for stakeManual,
// changeValidators and setNominees. The pick can change while idle or while
// one of those actions waits for confirmation, never once it is submitted.
func (s *Session) SetManualValidators(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkManualLocked(ids); err != nil {
		return err
	}
	switch current := s.machine.Current(); current {
	case Idle, StakeManual, ChangeValidators, SetNominees:
		if s.machine.Confirming() {
			return stakingerrors.NewStateError(s.chainName, fmt.Sprintf("action %s is being confirmed", current))
		}
	default:
		return stakingerrors.NewStateError(s.chainName, fmt.Sprintf("action %s does not take validators", current))
	}
	s.manual = append([]string(nil), ids...)
	return nil
}

// Cancel abandons the action in progress and stops its confirmation, if one
// is running.
func (s *Session) Cancel() Action {
	s.mu.Lock()
	prev := s.machine.Reset()
	h := s.confirmRelay
	s.confirmRelay = nil
	s.mu.Unlock()
	if h != nil {
		h.Terminate()
	}
	if prev != Idle {
		s.logger.Info().Str("action", prev.String()).Msg("staking action cancelled")
	}
	return prev
}

// Action returns the action in progress.
func (s *Session) Action() Action {
	return s.machine.Current()
}

// AmountToConfirm returns the amount the action in progress moves.
func (s *Session) AmountToConfirm() math.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AmountToConfirm(s.machine.Current(), s.stakeAmount, s.unstakeAmount, s.redeemableLocked())
}

// Prepare builds the confirmation for the action in progress.
func (s *Session) Prepare() (Confirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prepareLocked(s.machine.Current())
}

func (s *Session) prepareLocked(a Action) (Confirmation, error) {
	if a == Idle {
		return Confirmation{}, stakingerrors.NewStateError(s.chainName, "no staking action in progress")
	}

	c := Confirmation{
		Action:     a,
		Amount:     AmountToConfirm(a, s.stakeAmount, s.unstakeAmount, s.redeemableLocked()),
		Validators: []chain.ValidatorRecord{},
		Staker:     s.cfg.Staker,
		ChainName:  s.chainName,
	}
	switch a {
	case StakeAuto:
		if len(s.selected) == 0 {
			return Confirmation{}, stakingerrors.NewStateError(s.chainName, "no validators selected yet")
		}
		c.Validators = append(c.Validators, s.selected...)
	case StakeKeepNominated:
		nominated, ok := s.nominated.Get()
		if !ok || len(nominated) == 0 {
			return Confirmation{}, stakingerrors.NewStateError(s.chainName, "no nominated validators to keep")
		}
		c.Validators = append(c.Validators, nominated...)
	case StakeManual, ChangeValidators, SetNominees:
		if len(s.manual) == 0 {
			return Confirmation{}, stakingerrors.NewStateError(s.chainName, "no validators picked")
		}
		v, _ := s.validators.Get()
		for _, id := range s.manual {
			if r, ok := v.Find(id); ok {
				c.Validators = append(c.Validators, r)
			} else {
				c.Validators = append(c.Validators, chain.ValidatorRecord{AccountID: id})
			}
		}
	}
	return c, nil
}

// Confirm hands the prepared action to the Confirmer. The result arrives
// asynchronously; the action returns to idle once it does, unless it was
// cancelled or replaced in the meantime. An action is confirmed at most once.
// done, if not nil, is called with the outcome.
func (s *Session) Confirm(done func(ConfirmResult)) error {
	if s.confirmer == nil {
		return stakingerrors.NewConfigError(s.ChainName(), "no confirmer configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.prepareLocked(s.machine.Current())
	if err != nil {
		return err
	}
	gen, ok := s.machine.BeginConfirm(c.Action)
	if !ok {
		return stakingerrors.NewStateError(s.chainName, fmt.Sprintf("action %s is already being confirmed", c.Action))
	}
	h, err := relay.Spawn(s.relays, RelayConfirm, func(ctx context.Context) (ConfirmResult, error) {
		res := ConfirmResult{Action: c.Action, Amount: c.Amount}
		if err := s.confirmer.Confirm(ctx, c); err != nil {
			res.Error = err.Error()
		}
		res.At = time.Now()
		return res, nil
	}, func(res ConfirmResult) {
		s.finishConfirm(gen, res)
		if done != nil {
			done(res)
		}
	})
	if err != nil {
		s.machine.Reset()
		return stakingerrors.NewStateError(s.chainName, "session is closed")
	}
	s.confirmRelay = h
	return nil
}

func (s *Session) finishConfirm(gen uint64, res ConfirmResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.machine.Finish(gen) {
		s.logger.Warn().Str("action", res.Action.String()).Msg("dropping confirmation result, action no longer in progress")
		return
	}
	s.lastConfirm = &res
	s.confirmRelay = nil
	if res.Error != "" {
		s.logger.Warn().Str("action", res.Action.String()).Str("error", res.Error).Msg("staking action failed")
	} else {
		s.logger.Info().Str("action", res.Action.String()).Str("amount", res.Amount.String()).Msg("staking action confirmed")
	}
}

// Close terminates every outstanding relay and returns the action to idle.
func (s *Session) Close() {
	s.relays.TerminateAll()
	s.machine.Reset()
	s.logger.Info().Msg("session closed")
}

// Pending lists the relays still running.
func (s *Session) Pending() []string {
	return s.relays.Pending()
}

// PendingQueries lists the chain query relays still running, leaving out a
// confirmation in flight.
func (s *Session) PendingQueries() []string {
	pending := s.relays.Pending()
	out := pending[:0]
	for _, name := range pending {
		if name != RelayConfirm {
			out = append(out, name)
		}
	}
	return out
}
