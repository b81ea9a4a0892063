package errors

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     attempts,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		Multiplier:      2.0,
		RetryableErrors: []ErrorCode{ErrCodeNetwork},
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	assert.Equal(t, 3, config.MaxAttempts)
	assert.Equal(t, 1*time.Second, config.InitialDelay)
	assert.Equal(t, 30*time.Second, config.MaxDelay)
	assert.Equal(t, 2.0, config.Multiplier)
	assert.Contains(t, config.RetryableErrors, ErrCodeNetwork)
	assert.Contains(t, config.RetryableErrors, ErrCodeRPC)
	assert.Contains(t, config.RetryableErrors, ErrCodeTimeout)
}

func TestRetryWithConfig_Success(t *testing.T) {
	tests := []struct {
		name              string
		attemptsToSucceed int32
	}{
		{name: "succeeds on first attempt", attemptsToSucceed: 1},
		{name: "succeeds on second attempt", attemptsToSucceed: 2},
		{name: "succeeds on last attempt", attemptsToSucceed: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			err := RetryWithConfig(context.Background(), func() error {
				if atomic.AddInt32(&calls, 1) < tt.attemptsToSucceed {
					return NewNetworkError("polkadot", "dial failed", nil)
				}
				return nil
			}, fastConfig(3))

			require.NoError(t, err)
			assert.Equal(t, tt.attemptsToSucceed, atomic.LoadInt32(&calls))
		})
	}
}

func TestRetryWithConfig_Exhausted(t *testing.T) {
	var calls int32
	err := RetryWithConfig(context.Background(), func() error {
		atomic.AddInt32(&calls, 1)
		return NewNetworkError("kusama", "dial failed", nil)
	}, fastConfig(3))

	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	var stakingErr *StakingError
	require.True(t, errors.As(err, &stakingErr))
	assert.Equal(t, 3, stakingErr.Context["attempts"])
}

func TestRetryWithConfig_NonRetryableStopsImmediately(t *testing.T) {
	var calls int32
	err := RetryWithConfig(context.Background(), func() error {
		atomic.AddInt32(&calls, 1)
		return NewValidationError("westend", "bad address")
	}, fastConfig(5))

	require.Error(t, err)
	assert.True(t, IsStakingError(err, ErrCodeValidation))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryWithConfig_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithConfig(ctx, func() error { return nil }, fastConfig(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStakingError(t *testing.T) {
	cause := errors.New("socket closed")
	err := NewRPCError("polkadot", "query current era", cause)

	assert.Equal(t, "[polkadot:RPC] query current era: socket closed", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.IsRetryable())
	assert.Equal(t, SeverityMedium, err.Severity)

	state := NewStateError("", "action already in progress")
	assert.False(t, state.IsRetryable())
	assert.Equal(t, "[STATE] action already in progress", state.Error())
}

func TestIsRetryable_Patterns(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryable(errors.New("429 Too Many Requests")))
	assert.False(t, IsRetryable(errors.New("invalid address")))
	assert.False(t, IsRetryable(nil))
}

func TestErrorGroup(t *testing.T) {
	eg := NewErrorGroup()
	assert.NoError(t, eg.ErrOrNil())

	eg.Add(nil)
	eg.Add(errors.New("first"))
	eg.Add(errors.New("second"))

	assert.True(t, eg.HasErrors())
	assert.Equal(t, "2 errors occurred: first", eg.Error())
}
