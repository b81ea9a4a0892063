package staking

import (
	"fmt"
	"sync"

	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
	"github.com/pushchain/easystake/stakingClient/metrics"
)

// Action is the staking operation a user has started. Idle means none.
type Action string

const (
	Idle               Action = ""
	StakeAuto          Action = "stakeAuto"
	StakeManual        Action = "stakeManual"
	StakeKeepNominated Action = "stakeKeepNominated"
	Unstake            Action = "unstake"
	ChangeValidators   Action = "changeValidators"
	SetNominees        Action = "setNominees"
	StopNominating     Action = "stopNominating"
	TuneUp             Action = "tuneUp"
	WithdrawUnbound    Action = "withdrawUnbound"
)

// Actions lists every non-idle action.
var Actions = []Action{
	StakeAuto, StakeManual, StakeKeepNominated, Unstake, ChangeValidators,
	SetNominees, StopNominating, TuneUp, WithdrawUnbound,
}

func (a Action) String() string {
	if a == Idle {
		return "idle"
	}
	return string(a)
}

// Valid reports whether a is a known non-idle action.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// IsStake reports whether a bonds funds.
func (a Action) IsStake() bool {
	return a == StakeAuto || a == StakeManual || a == StakeKeepNominated
}

// ParseAction parses an action name.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return Idle, stakingerrors.NewValidationError("", fmt.Sprintf("unknown staking action %q", s))
	}
	return a, nil
}

// Machine tracks the action in progress: idle, then exactly one action until
// it is reset by close, cancel or completion. Each Begin opens a new
// generation so a late confirmation result can tell whether its action is
// still the one in progress.
type Machine struct {
	mu         sync.Mutex
	current    Action
	gen        uint64
	confirming bool
	metrics    *metrics.Metrics
}

func NewMachine(m *metrics.Metrics) *Machine {
	return &Machine{metrics: m}
}

// Begin moves from idle to a. While another action is in progress the call
// changes nothing and returns false.
func (m *Machine) Begin(a Action) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != Idle {
		m.metrics.Action(string(a), "ignored")
		return false
	}
	m.current = a
	m.gen++
	m.confirming = false
	m.metrics.Action(string(a), "begun")
	return true
}

func (m *Machine) Current() Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Confirming reports whether the action in progress has been handed off for
// confirmation.
func (m *Machine) Confirming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirming
}

// BeginConfirm marks a as being confirmed and returns its generation. It
// fails when a is not the action in progress or is already being confirmed.
func (m *Machine) BeginConfirm(a Action) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a == Idle || m.current != a || m.confirming {
		m.metrics.Action(string(a), "ignored")
		return 0, false
	}
	m.confirming = true
	m.metrics.Action(string(a), "confirming")
	return m.gen, true
}

// Finish returns to idle if generation gen is still in progress. A result for
// an action that was cancelled or replaced reports false and changes nothing.
func (m *Machine) Finish(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == Idle || m.gen != gen {
		return false
	}
	m.metrics.Action(string(m.current), "finished")
	m.current = Idle
	m.confirming = false
	return true
}

// Reset returns to idle and reports the action that was in progress.
func (m *Machine) Reset() Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.current
	m.current = Idle
	m.confirming = false
	if prev != Idle {
		m.metrics.Action(string(prev), "reset")
	}
	return prev
}
