// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies command errors so scripts can tell bad
// input from a backend that needs a retry.
type ErrorCategory string

const (
	// CategoryValidation means the caller provided invalid input.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound means a referenced file or setting is missing.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden means the backend refused the caller.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryTransient means the operation may succeed on retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal means an unexpected failure.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized command error with an optional hint for
// the user. The hint is printed on its own line after the error.
type ToolError struct {
	Category ErrorCategory
	Err      error
	hint     string
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Hint returns the suggestion attached with WithHint, or "".
func (e *ToolError) Hint() string { return e.hint }

// WithHint attaches a suggestion and returns e.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.hint = hint
	return e
}

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// CategoryOf returns the category of the first ToolError in err's
// chain, or CategoryInternal when there is none.
func CategoryOf(err error) ErrorCategory {
	var toolError *ToolError
	if errors.As(err, &toolError) {
		return toolError.Category
	}
	return CategoryInternal
}
