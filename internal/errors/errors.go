// Package errors provides the categorized error type used across the
// benchmark harness. The category decides how a failure propagates: a
// configuration error aborts the invocation, a not-supported or execution
// error skips one benchmark combination, and an integrity error is returned
// to whoever loaded the results log.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by how the caller must react to them.
type ErrorCategory string

const (
	ErrCategoryConfiguration ErrorCategory = "CONFIGURATION"
	ErrCategoryNotSupported  ErrorCategory = "NOT_SUPPORTED"
	ErrCategoryExecution     ErrorCategory = "EXECUTION"
	ErrCategoryIntegrity     ErrorCategory = "INTEGRITY"
)

// Error codes for each category.
const (
	// Configuration codes
	CodeInvalidSchema    = "INVALID_SCHEMA"
	CodeInvalidLength    = "INVALID_LENGTH"
	CodeNotADirectory    = "NOT_A_DIRECTORY"
	CodeInvalidOperation = "INVALID_OPERATION"
	CodeInvalidMethod    = "INVALID_METHOD"
	CodeInvalidTiming    = "INVALID_TIMING"

	// Not-supported codes
	CodeNoDecompress = "NO_DECOMPRESS"

	// Execution codes
	CodeWriteFailed = "WRITE_FAILED"
	CodeReadFailed  = "READ_FAILED"

	// Integrity codes
	CodeMalformedRecord = "MALFORMED_RECORD"
)

// BenchError is the structured error type used throughout the harness.
type BenchError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string.
func (e *BenchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *BenchError) Is(target error) bool {
	var t *BenchError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new BenchError.
func New(category ErrorCategory, code, message string) *BenchError {
	return &BenchError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new BenchError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *BenchError {
	return &BenchError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *BenchError) WithDetails(details map[string]interface{}) *BenchError {
	cp := *e
	cp.Details = details
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCategory(err error) ErrorCategory {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCode(err error) string {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func IsConfiguration(err error) bool { return GetCategory(err) == ErrCategoryConfiguration }

func IsNotSupported(err error) bool { return GetCategory(err) == ErrCategoryNotSupported }

func IsExecution(err error) bool { return GetCategory(err) == ErrCategoryExecution }

func IsIntegrity(err error) bool { return GetCategory(err) == ErrCategoryIntegrity }

// Convenience constructors for common errors.

func NewConfigurationError(code, message string) *BenchError {
	return New(ErrCategoryConfiguration, code, message)
}

func NewNotSupportedError(code, message string) *BenchError {
	return New(ErrCategoryNotSupported, code, message)
}

func NewExecutionError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryExecution, code, message, cause)
}

func NewIntegrityError(code, message string, cause error) *BenchError {
	return Wrap(ErrCategoryIntegrity, code, message, cause)
}
