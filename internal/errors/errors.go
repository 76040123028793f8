// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoExpiryFound    = errors.New("no expiry found")
	ErrChainFetch       = errors.New("option chain fetch failed")
	ErrEarningsCheck    = errors.New("earnings check failed")
	ErrHistoryFetch     = errors.New("price history fetch failed")
	ErrUnknownStrategy  = errors.New("unknown strategy type")
	ErrFilterMismatch   = errors.New("filter does not match strategy type")
	ErrRateLimited      = errors.New("rate limited")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrBadRequest       = errors.New("bad request")
	ErrConnectionFailed = errors.New("connection failed")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDatabaseError    = errors.New("database error")
	ErrExecutionRunning = errors.New("execution already running")
	ErrInsufficientData = errors.New("insufficient data")
)

// ChainFetchError is returned when an option chain cannot be obtained for a symbol.
type ChainFetchError struct {
	Symbol string
	Status string
	Err    error
}

func (e *ChainFetchError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("chain fetch [%s] status %s: %v", e.Symbol, e.Status, e.Err)
	}
	return fmt.Sprintf("chain fetch [%s]: %v", e.Symbol, e.Err)
}

func (e *ChainFetchError) Unwrap() error {
	return e.Err
}

// Is makes every ChainFetchError match ErrChainFetch.
func (e *ChainFetchError) Is(target error) bool {
	return target == ErrChainFetch
}

// NewChainFetchError creates a new ChainFetchError.
func NewChainFetchError(symbol, status string, err error) *ChainFetchError {
	return &ChainFetchError{
		Symbol: symbol,
		Status: status,
		Err:    err,
	}
}

// ProviderError represents a non-success response from a market data provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error [%s] %d: %s: %v", e.Provider, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("provider error [%s] %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider string, statusCode int, message string, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match validation failures against ErrConfigInvalid.
func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
