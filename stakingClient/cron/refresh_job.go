// cron/refresh_job.go
package cron

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
)

// Refresher is the part of a staking session the job drives.
type Refresher interface {
	Open(ctx context.Context) error
	Refresh() error
	// PendingQueries lists the chain queries still running. A confirmation in
	// flight is not one of them and does not hold back a refresh.
	PendingQueries() []string
}

type RefreshJob struct {
	session  Refresher
	interval time.Duration
	retry    *stakingerrors.RetryConfig
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	opened  bool
	stopCh  chan struct{}
	forceCh chan struct{}
	wg      sync.WaitGroup
}

// NewRefreshJob creates a job that opens session once and refreshes it every
// interval. attempts bounds the initial open.
func NewRefreshJob(session Refresher, interval time.Duration, attempts int, logger zerolog.Logger) *RefreshJob {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	retry := stakingerrors.DefaultRetryConfig()
	if attempts > 0 {
		retry.MaxAttempts = attempts
	}
	return &RefreshJob{
		session:  session,
		interval: interval,
		retry:    retry,
		logger:   logger.With().Str("component", "refresh_cron").Logger(),
	}
}

// Start launches the background loop and returns immediately.
// Subsequent calls are no-ops.
func (j *RefreshJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}
	if j.session == nil {
		return errors.New("cron: session must be non-nil")
	}

	j.stopCh = make(chan struct{})
	j.forceCh = make(chan struct{}, 1)
	j.running = true
	j.wg.Add(1)

	go j.run(ctx)
	return nil
}

// Stop signals the loop to exit and waits for it to finish.
func (j *RefreshJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopCh)
	j.running = false
	j.mu.Unlock()
	j.wg.Wait()
}

// ForceRefresh requests an immediate refresh without waiting for the ticker.
func (j *RefreshJob) ForceRefresh() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running {
		return
	}
	select {
	case j.forceCh <- struct{}{}:
	default:
	}
}

// Opened reports whether the initial open succeeded.
func (j *RefreshJob) Opened() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.opened
}

func (j *RefreshJob) run(parent context.Context) {
	defer j.wg.Done()

	if err := j.initialSync(parent); err != nil {
		j.logger.Warn().Err(err).Msg("initial staking sync failed; serving cached data until the next refresh")
	}

	t := time.NewTicker(j.interval)
	defer t.Stop()

	for {
		select {
		case <-parent.Done():
			j.logger.Info().Msg("refresh cron: context canceled; stopping")
			return
		case <-j.stopCh:
			j.logger.Info().Msg("refresh cron: stop requested; stopping")
			return
		case <-t.C:
			if err := j.syncOnce(parent); err != nil {
				j.logger.Warn().Err(err).Msg("periodic staking refresh failed")
			}
		case <-j.forceCh:
			if err := j.syncOnce(parent); err != nil {
				j.logger.Warn().Err(err).Msg("forced staking refresh failed")
			}
		}
	}
}

func (j *RefreshJob) initialSync(ctx context.Context) error {
	attempt := 0
	err := stakingerrors.RetryWithConfig(ctx, func() error {
		attempt++
		if err := j.session.Open(ctx); err != nil {
			j.logger.Warn().Int("attempt", attempt).Err(err).Msg("initial staking sync attempt failed")
			return err
		}
		return nil
	}, j.retry)
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.opened = true
	j.mu.Unlock()
	j.logger.Info().Int("attempt", attempt).Msg("initial staking sync successful")
	return nil
}

func (j *RefreshJob) syncOnce(ctx context.Context) error {
	if !j.Opened() {
		return j.initialSync(ctx)
	}
	if pending := j.session.PendingQueries(); len(pending) > 0 {
		j.logger.Debug().Strs("pending", pending).Msg("previous refresh still running; skipping")
		return nil
	}
	return j.session.Refresh()
}
