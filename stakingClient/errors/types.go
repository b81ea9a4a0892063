package errors

import (
	"fmt"
)

// ErrorCode represents different categories of errors
type ErrorCode string

const (
	// ErrCodeValidation indicates input validation errors
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNetwork indicates network-related errors
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeRPC indicates chain RPC errors
	ErrCodeRPC ErrorCode = "RPC"

	// ErrCodeTimeout indicates timeout errors
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeCache indicates metadata cache errors
	ErrCodeCache ErrorCode = "CACHE"

	// ErrCodeDatabase indicates database operation errors
	ErrCodeDatabase ErrorCode = "DATABASE"

	// ErrCodeConfig indicates configuration errors
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeState indicates a staking action rejected by the current state
	ErrCodeState ErrorCode = "STATE"

	// ErrCodeDecode indicates a chain value that could not be decoded
	ErrCodeDecode ErrorCode = "DECODE"

	// ErrCodeInternal indicates internal system errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// StakingError represents an error raised while serving a chain's staking data
type StakingError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Chain    string                 `json:"chain,omitempty"`
	Severity Severity               `json:"severity"`
	Cause    error                  `json:"-"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// NewStakingError creates a new StakingError
func NewStakingError(code ErrorCode, chain, message string, cause error) *StakingError {
	return &StakingError{
		Code:     code,
		Message:  message,
		Chain:    chain,
		Severity: determineSeverity(code),
		Cause:    cause,
		Context:  make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *StakingError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Chain != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Chain, e.Code, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause
func (e *StakingError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *StakingError) WithContext(key string, value interface{}) *StakingError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity overrides the default severity
func (e *StakingError) WithSeverity(severity Severity) *StakingError {
	e.Severity = severity
	return e
}

// IsRetryable returns true if the error is retryable
func (e *StakingError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeNetwork, ErrCodeRPC, ErrCodeTimeout:
		return true
	case ErrCodeDatabase:
		return e.Severity != SeverityCritical
	default:
		return false
	}
}

func determineSeverity(code ErrorCode) Severity {
	switch code {
	case ErrCodeInternal:
		return SeverityCritical
	case ErrCodeDatabase:
		return SeverityHigh
	case ErrCodeNetwork, ErrCodeRPC, ErrCodeTimeout, ErrCodeDecode, ErrCodeCache:
		return SeverityMedium
	case ErrCodeValidation, ErrCodeConfig, ErrCodeState:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// ErrorGroup represents a collection of errors
type ErrorGroup struct {
	Errors []error
}

// NewErrorGroup creates a new error group
func NewErrorGroup() *ErrorGroup {
	return &ErrorGroup{
		Errors: make([]error, 0),
	}
}

// Add adds an error to the group
func (eg *ErrorGroup) Add(err error) {
	if err != nil {
		eg.Errors = append(eg.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (eg *ErrorGroup) HasErrors() bool {
	return len(eg.Errors) > 0
}

// Error implements the error interface
func (eg *ErrorGroup) Error() string {
	if len(eg.Errors) == 0 {
		return ""
	}
	if len(eg.Errors) == 1 {
		return eg.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(eg.Errors), eg.Errors[0])
}

// ErrOrNil returns the group as an error, or nil when empty.
func (eg *ErrorGroup) ErrOrNil() error {
	if !eg.HasErrors() {
		return nil
	}
	return eg
}

// NewValidationError creates a validation error
func NewValidationError(chain, message string) *StakingError {
	return NewStakingError(ErrCodeValidation, chain, message, nil)
}

// NewNetworkError creates a network error
func NewNetworkError(chain, message string, cause error) *StakingError {
	return NewStakingError(ErrCodeNetwork, chain, message, cause)
}

// NewRPCError creates an RPC error
func NewRPCError(chain, message string, cause error) *StakingError {
	return NewStakingError(ErrCodeRPC, chain, message, cause)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(chain, message string) *StakingError {
	return NewStakingError(ErrCodeTimeout, chain, message, nil)
}

// NewCacheError creates a metadata cache error
func NewCacheError(chain, message string, cause error) *StakingError {
	return NewStakingError(ErrCodeCache, chain, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(chain, message string) *StakingError {
	return NewStakingError(ErrCodeConfig, chain, message, nil)
}

// NewStateError creates an error for an action the current staking state does not allow
func NewStateError(chain, message string) *StakingError {
	return NewStakingError(ErrCodeState, chain, message, nil)
}

// NewDecodeError creates a decode error
func NewDecodeError(chain, message string, cause error) *StakingError {
	return NewStakingError(ErrCodeDecode, chain, message, cause)
}

// NewInternalError creates an internal error
func NewInternalError(chain, message string, cause error) *StakingError {
	return NewStakingError(ErrCodeInternal, chain, message, cause)
}
