package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WrapStakingError wraps an error as a StakingError if it isn't already one
func WrapStakingError(err error, code ErrorCode, chain, message string) *StakingError {
	if err == nil {
		return nil
	}

	var stakingErr *StakingError
	if errors.As(err, &stakingErr) {
		if stakingErr.Context == nil {
			stakingErr.Context = make(map[string]interface{})
		}
		stakingErr.Context["wrapped_message"] = message
		if chain != "" && stakingErr.Chain == "" {
			stakingErr.Chain = chain
		}
		return stakingErr
	}

	return NewStakingError(code, chain, message, err)
}

// Is checks if an error is of a specific type
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As checks if an error can be assigned to a target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns a plain error, mirroring the standard library.
func New(text string) error {
	return errors.New(text)
}

// IsStakingError checks if an error is a StakingError with specific code
func IsStakingError(err error, code ErrorCode) bool {
	var stakingErr *StakingError
	if errors.As(err, &stakingErr) {
		return stakingErr.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var stakingErr *StakingError
	if errors.As(err, &stakingErr) {
		return stakingErr.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"too many requests",
		"rate limit",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// GetSeverity returns the severity of an error
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityInfo
	}

	var stakingErr *StakingError
	if errors.As(err, &stakingErr) {
		return stakingErr.Severity
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "panic"), strings.Contains(errStr, "fatal"):
		return SeverityCritical
	case strings.Contains(errStr, "failed"), strings.Contains(errStr, "error"):
		return SeverityHigh
	case strings.Contains(errStr, "warning"):
		return SeverityMedium
	}
	return SeverityLow
}
