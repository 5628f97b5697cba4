// Package errors provides structured error types for the mosaic core.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and CLI
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes map the failure taxonomy of the stitching core:
//   - GEOMETRY_ERROR: shape or coordinate inconsistency beyond the 1-pixel tolerance
//   - NOT_A_REGULAR_GRID: tile positions do not form a regular lattice
//   - OVERLAP_INCONSISTENCY: grid-snap produced a tile count mismatch
//   - COMPOSITOR_CONFIG: compositor plan construction received bad shapes
//   - INVALID_INPUT: generic input validation failure
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotARegularGrid, "not all x offsets are the same: %v", offsets)
//	if errors.Is(err, errors.ErrCodeNotARegularGrid) {
//	    // fall back to free-mode resolution
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different failure categories.
const (
	// ErrCodeGeometry indicates a tile shape or coordinate inconsistency
	// beyond the 1-pixel tolerance. Always fatal.
	ErrCodeGeometry Code = "GEOMETRY_ERROR"

	// ErrCodeNotARegularGrid indicates grid detection failed. Caught
	// internally by auto-mode placement, fatal in explicit grid mode.
	ErrCodeNotARegularGrid Code = "NOT_A_REGULAR_GRID"

	// ErrCodeOverlapInconsistency indicates grid-snap assigned a different
	// number of tiles than it received. Always fatal, never retried; it
	// points at malformed input or an internal bug.
	ErrCodeOverlapInconsistency Code = "OVERLAP_INCONSISTENCY"

	// ErrCodeCompositorConfig indicates an axis-count or shape mismatch at
	// compositor plan construction.
	ErrCodeCompositorConfig Code = "COMPOSITOR_CONFIG"

	// ErrCodeInvalidInput indicates a generic input validation failure
	// (empty tile lists, bad mode strings, malformed manifests).
	ErrCodeInvalidInput Code = "INVALID_INPUT"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
