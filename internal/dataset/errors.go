package dataset

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes dataset errors.
type ErrorCode string

const (
	// ErrCodeFileFormat indicates an unreadable or malformed input file.
	ErrCodeFileFormat ErrorCode = "FILE_FORMAT"

	// ErrCodeColumnNotFound indicates a reference to an unknown column.
	ErrCodeColumnNotFound ErrorCode = "COLUMN_NOT_FOUND"

	// ErrCodeBadPredicate indicates a malformed or ill-typed filter predicate.
	ErrCodeBadPredicate ErrorCode = "BAD_PREDICATE"

	// ErrCodeDuplicateColumn indicates a transform that would produce
	// two columns with the same name.
	ErrCodeDuplicateColumn ErrorCode = "DUPLICATE_COLUMN"
)

// Error is a structured dataset error.
//
// Failure is fatal to the step that raised it; there is no retry logic.
// The caller surfaces the error to the user and prior pipeline outputs
// remain valid.
type Error struct {
	Code    ErrorCode
	Column  string // affected column, when known
	Path    string // source file, for load errors
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("%s: column %q: %s", e.Code, e.Column, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsColumnNotFound reports whether err is a COLUMN_NOT_FOUND error.
// Uses errors.As to handle wrapped errors.
func IsColumnNotFound(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == ErrCodeColumnNotFound
}

// IsFileFormat reports whether err is a FILE_FORMAT error.
func IsFileFormat(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == ErrCodeFileFormat
}

func columnNotFound(name string) *Error {
	return &Error{Code: ErrCodeColumnNotFound, Column: name, Message: "no such column"}
}
