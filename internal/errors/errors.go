// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrProviderUnavailable = errors.New("price provider unavailable")
	ErrPriceUnavailable    = errors.New("price unavailable")
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrMalformedInput      = errors.New("malformed input")
	ErrSymbolNotTracked    = errors.New("symbol not tracked")
	ErrUnknownKind         = errors.New("unknown threshold kind")
	ErrTimeout             = errors.New("operation timed out")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrExportFailed        = errors.New("export failed")
	ErrCircuitOpen         = errors.New("circuit breaker is open")
	ErrServiceStopped      = errors.New("service stopped")
)

// ProviderError represents a failed call to a market-data provider.
type ProviderError struct {
	Provider string
	Op       string
	Symbols  []string
	Err      error
}

func (e *ProviderError) Error() string {
	symbols := strings.Join(e.Symbols, ",")
	if e.Err != nil {
		return fmt.Sprintf("provider error [%s] %s %s: %v", e.Provider, e.Op, symbols, e.Err)
	}
	return fmt.Sprintf("provider error [%s] %s %s", e.Provider, e.Op, symbols)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is lets every ProviderError match ErrProviderUnavailable.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, op string, symbols []string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Op:       op,
		Symbols:  symbols,
		Err:      err,
	}
}

// ValidationError represents a rejected piece of user input.
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

// NewValidationError creates a new ValidationError. The kind is the sentinel
// the error unwraps to, ErrMalformedInput or ErrInvalidSymbol.
func NewValidationError(field string, value interface{}, message string, kind error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     kind,
	}
}

// ExportError represents a failure while encoding or writing an export.
type ExportError struct {
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s]: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Is lets every ExportError match ErrExportFailed.
func (e *ExportError) Is(target error) bool {
	return target == ErrExportFailed
}

// NewExportError creates a new ExportError.
func NewExportError(format string, err error) *ExportError {
	return &ExportError{Format: format, Err: err}
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
