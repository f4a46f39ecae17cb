package engine

import (
	"errors"
	"fmt"
)

// FitErrorCode categorizes fit-engine errors.
type FitErrorCode string

const (
	// ErrCodeSpecification indicates a malformed model or a variable
	// mismatch against the dataset.
	ErrCodeSpecification FitErrorCode = "SPECIFICATION"

	// ErrCodeColumnNotFound indicates a model variable absent from the
	// dataset's columns.
	ErrCodeColumnNotFound FitErrorCode = "COLUMN_NOT_FOUND"

	// ErrCodeNotConverged indicates the optimizer failed to produce
	// estimates.
	ErrCodeNotConverged FitErrorCode = "NOT_CONVERGED"

	// ErrCodeComparison indicates an attempted comparison of non-nested
	// or incompatible fitted models.
	ErrCodeComparison FitErrorCode = "COMPARISON"

	// ErrCodeOrderViolation indicates an invariance comparison requested
	// out of the fixed configural, metric, scalar order.
	ErrCodeOrderViolation FitErrorCode = "ORDER_VIOLATION"
)

// FitError represents an error raised while fitting or comparing models.
//
// All errors surface immediately to the caller at the point of failure;
// there is no retry, and prior pipeline outputs remain valid.
type FitError struct {
	// Code identifies the error category.
	Code FitErrorCode

	// Message is a human-readable description.
	Message string

	// Model names the affected model specification, when known.
	Model string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, when wrapping.
	Err error
}

// Error implements the error interface.
func (e *FitError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s: %s (model=%s)", e.Code, e.Message, e.Model)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *FitError) Unwrap() error { return e.Err }

// IsConvergenceError reports whether err is a NOT_CONVERGED error.
// Uses errors.As to handle wrapped errors.
func IsConvergenceError(err error) bool {
	var fe *FitError
	return errors.As(err, &fe) && fe.Code == ErrCodeNotConverged
}

// IsComparisonError reports whether err is a COMPARISON error.
func IsComparisonError(err error) bool {
	var fe *FitError
	return errors.As(err, &fe) && fe.Code == ErrCodeComparison
}

// IsSpecificationError reports whether err is a SPECIFICATION or
// COLUMN_NOT_FOUND error.
func IsSpecificationError(err error) bool {
	var fe *FitError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Code == ErrCodeSpecification || fe.Code == ErrCodeColumnNotFound
}

// IsOrderViolation reports whether err is an ORDER_VIOLATION error.
func IsOrderViolation(err error) bool {
	var fe *FitError
	return errors.As(err, &fe) && fe.Code == ErrCodeOrderViolation
}

// NewConvergenceError creates a FitError for an optimizer failure.
func NewConvergenceError(model, message string, err error) *FitError {
	return &FitError{Code: ErrCodeNotConverged, Model: model, Message: message, Err: err}
}

// NewComparisonError creates a FitError for an invalid comparison.
func NewComparisonError(message string, details map[string]string) *FitError {
	return &FitError{Code: ErrCodeComparison, Message: message, Details: details}
}
