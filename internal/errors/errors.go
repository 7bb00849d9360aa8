// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoChainAvailable  = errors.New("no option chain available")
	ErrNoStrikeNearSpot  = errors.New("no strike near spot price")
	ErrStaleChain        = errors.New("option chain snapshot is stale")
	ErrInvalidLotSize    = errors.New("invalid lot size")
	ErrRiskLimitExceeded = errors.New("risk limit exceeded")
	ErrInsufficientFunds = errors.New("insufficient margin")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCredentialRevoked  = errors.New("credential revoked")
	ErrDataUnavailable    = errors.New("market data unavailable")
	ErrOrderRejected      = errors.New("order rejected")
	ErrRateLimited        = errors.New("rate limited")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrNotFound           = errors.New("not found")
	ErrDatabaseError      = errors.New("database error")
)

// ExchangeError represents an error returned by the exchange API.
type ExchangeError struct {
	Code       string
	HTTPStatus int
	Message    string
	Err        error
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exchange error [%s] (http %d): %s: %v", e.Code, e.HTTPStatus, e.Message, e.Err)
	}
	return fmt.Sprintf("exchange error [%s] (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// Transient reports whether the error is a transient network or
// exchange-side condition that may succeed on resubmission. Exchange
// rejections (insufficient margin, invalid instrument) are terminal.
func (e *ExchangeError) Transient() bool {
	if e.HTTPStatus == 429 || e.HTTPStatus >= 500 {
		return true
	}
	return e.HTTPStatus == 0 && e.Err != nil // transport failure, no HTTP response
}

// NewExchangeError creates a new ExchangeError.
func NewExchangeError(code string, httpStatus int, message string, err error) *ExchangeError {
	return &ExchangeError{
		Code:       code,
		HTTPStatus: httpStatus,
		Message:    message,
		Err:        err,
	}
}

// IsTransient reports whether err is a retryable submission error.
func IsTransient(err error) bool {
	var ee *ExchangeError
	if errors.As(err, &ee) {
		return ee.Transient()
	}
	return errors.Is(err, ErrConnectionFailed) || errors.Is(err, ErrRateLimited)
}

// OrderError represents an error related to order operations.
type OrderError struct {
	ClientOrderID string
	Symbol        string
	Action        string
	Reason        string
	Err           error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order error [%s] %s %s: %s: %v", e.ClientOrderID, e.Action, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error [%s] %s %s: %s", e.ClientOrderID, e.Action, e.Symbol, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(clientOrderID, symbol, action, reason string, err error) *OrderError {
	return &OrderError{
		ClientOrderID: clientOrderID,
		Symbol:        symbol,
		Action:        action,
		Reason:        reason,
		Err:           err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError wrapping a sentinel.
func NewValidationError(field string, value interface{}, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	}
}

// DataError represents a market-data error.
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

// DriftError represents a reconciliation mismatch between recorded
// fills and the exchange's position view. Surfaced as a warning, never
// auto-corrected.
type DriftError struct {
	OutcomeID   string
	Symbol      string
	RecordedQty int
	ExchangeQty int
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("reconciliation drift [%s] %s: recorded %d, exchange %d",
		e.OutcomeID, e.Symbol, e.RecordedQty, e.ExchangeQty)
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
