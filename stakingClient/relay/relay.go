// Package relay runs one-shot background chain queries.
//
// A relay invokes a single query off the caller's goroutine and hands back
// exactly one result, then finishes. Relays share no state with each other and
// are owned by a Group, which can terminate one relay or all of them.
package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/easystake/stakingClient/metrics"
)

// ErrClosed is returned when spawning on a terminated Group.
var ErrClosed = errors.New("relay group terminated")

// Group owns a set of relays. The zero value is not usable; use NewGroup.
type Group struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	nextID uint64
	tasks  map[uint64]*Handle
	closed bool
}

// NewGroup creates a Group. A positive timeout bounds every query; zero means
// a query may run until it returns or is terminated.
func NewGroup(parent context.Context, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Group {
	ctx, cancel := context.WithCancel(parent)
	return &Group{
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
		metrics: m,
		logger:  logger.With().Str("component", "relay").Logger(),
		tasks:   make(map[uint64]*Handle),
	}
}

// Handle refers to one spawned relay.
type Handle struct {
	id         uint64
	name       string
	started    time.Time
	cancel     context.CancelFunc
	terminated atomic.Bool
	done       chan struct{}
}

func (h *Handle) Name() string { return h.name }

// Done is closed once the relay has delivered, failed or been terminated.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Terminate stops the relay. Its result, if it arrives later, is dropped.
func (h *Handle) Terminate() {
	h.terminated.Store(true)
	h.cancel()
}

// Spawn starts query on its own goroutine and calls deliver with the result
// once, unless the relay fails or is terminated first. Errors are logged and
// not delivered.
func Spawn[T any](g *Group, name string, query func(ctx context.Context) (T, error), deliver func(T)) (*Handle, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if g.timeout > 0 {
		ctx, cancel = context.WithTimeout(g.ctx, g.timeout)
	} else {
		ctx, cancel = context.WithCancel(g.ctx)
	}
	g.nextID++
	h := &Handle{id: g.nextID, name: name, started: time.Now(), cancel: cancel, done: make(chan struct{})}
	g.tasks[h.id] = h
	g.wg.Add(1)
	g.mu.Unlock()

	g.metrics.RelayStarted()
	g.logger.Debug().Str("relay", name).Uint64("id", h.id).Msg("relay started")

	go g.run(ctx, h, func(ctx context.Context) (func(), error) {
		v, err := awaitQuery(ctx, query)
		if err != nil {
			return nil, err
		}
		return func() { deliver(v) }, nil
	})
	return h, nil
}

func (g *Group) run(ctx context.Context, h *Handle, exec func(context.Context) (func(), error)) {
	defer g.wg.Done()
	defer close(h.done)
	defer h.cancel()
	defer g.forget(h.id)

	apply, err := exec(ctx)
	took := time.Since(h.started)

	switch {
	case h.terminated.Load() || (err != nil && g.ctx.Err() != nil):
		g.metrics.RelayFinished(h.name, took, metrics.OutcomeTerminated)
		g.logger.Debug().Str("relay", h.name).Msg("relay terminated")
	case err != nil:
		g.metrics.RelayFinished(h.name, took, metrics.OutcomeError)
		g.logger.Error().Err(err).Str("relay", h.name).Dur("took", took).Msg("relay query failed")
	default:
		apply()
		g.metrics.RelayFinished(h.name, took, metrics.OutcomeOK)
		g.logger.Debug().Str("relay", h.name).Dur("took", took).Msg("relay delivered")
	}
}

// awaitQuery returns when the query finishes or ctx is done, whichever is first.
// A query that ignores ctx keeps running in the background and its result is discarded.
func awaitQuery[T any](ctx context.Context, query func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := query(ctx)
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (g *Group) forget(id uint64) {
	g.mu.Lock()
	delete(g.tasks, id)
	g.mu.Unlock()
}

// Pending returns the names of relays that have not finished.
func (g *Group) Pending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.tasks))
	for _, h := range g.tasks {
		names = append(names, h.name)
	}
	return names
}

// Len returns the number of relays that have not finished.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}

// TerminateAll stops every outstanding relay, waits for their goroutines to
// return and rejects later spawns. It must not be called from a deliver callback
// or while holding a lock a deliver callback takes.
func (g *Group) TerminateAll() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	n := len(g.tasks)
	for _, h := range g.tasks {
		h.terminated.Store(true)
	}
	g.mu.Unlock()

	g.cancel()
	g.wg.Wait()
	g.logger.Debug().Int("terminated", n).Msg("relays terminated")
}

// Closed reports whether TerminateAll has been called.
func (g *Group) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
