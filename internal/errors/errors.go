// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoMatch              = errors.New("no positions match symbol")
	ErrQuoteUnavailable     = errors.New("no two-sided quote available")
	ErrGreeksTimeout        = errors.New("greeks unavailable: delta never populated")
	ErrUnsupportedStructure = errors.New("multi-leg combo cannot be evicted per-leg")
	ErrUpstreamFetch        = errors.New("upstream chain fetch failed")
	ErrNotQualified         = errors.New("contract not qualified")
	ErrCacheMiss            = errors.New("cache miss")
	ErrStoreClosed          = errors.New("store is closed")
)

// ValidationError represents malformed request input, surfaced at the
// request boundary before any planning work begins.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// FetchError represents a chain-data fetch failure for one symbol. Other
// symbols in a batch are unaffected.
type FetchError struct {
	Symbol string
	Bucket string // YYYYMM month bucket, empty if not bucket-specific
	Err    error
}

func (e *FetchError) Error() string {
	if e.Bucket != "" {
		return fmt.Sprintf("fetch error [%s %s]: %v", e.Symbol, e.Bucket, e.Err)
	}
	return fmt.Sprintf("fetch error [%s]: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(symbol, bucket string, err error) *FetchError {
	return &FetchError{Symbol: symbol, Bucket: bucket, Err: err}
}

// OrderError represents an error while constructing or submitting a
// closing order for one contract.
type OrderError struct {
	Symbol string
	Action string
	Err    error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order error [%s] %s: %v", e.Symbol, e.Action, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(symbol, action string, err error) *OrderError {
	return &OrderError{Symbol: symbol, Action: action, Err: err}
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
