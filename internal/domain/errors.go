package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable machine-readable error classification.
type ErrorCode string

const (
	CodeValidation            ErrorCode = "validation_error"
	CodePermission            ErrorCode = "permission_denied"
	CodeNotFound              ErrorCode = "not_found"
	CodeTool                  ErrorCode = "tool_error"
	CodeDependencyUnavailable ErrorCode = "dependency_unavailable"
	CodeBudgetExceeded        ErrorCode = "budget_exceeded"
)

// Error is a classified orchestrator error. Validation, permission and
// not-found errors are fatal to a turn; tool errors are absorbed into the
// evidence set; dependency-unavailable is fatal only at the final
// generation step.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewValidationError reports a malformed query or filters.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewPermissionError reports a role lacking access to a tool or filter.
func NewPermissionError(format string, args ...any) *Error {
	return &Error{Code: CodePermission, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports a referenced entity that does not exist.
func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewToolError wraps a single tool's transient failure.
func NewToolError(tool string, cause error) *Error {
	return &Error{Code: CodeTool, Message: fmt.Sprintf("tool %s failed", tool), cause: cause}
}

// NewDependencyUnavailableError reports an unreachable hard dependency.
func NewDependencyUnavailableError(dep string, cause error) *Error {
	return &Error{Code: CodeDependencyUnavailable, Message: fmt.Sprintf("%s unavailable", dep), cause: cause}
}

// CodeOf extracts the classification from err, or empty if unclassified.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsNotFound reports whether err is classified not-found.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsPermission reports whether err is classified permission-denied.
func IsPermission(err error) bool { return CodeOf(err) == CodePermission }

// IsValidation reports whether err is classified validation.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }
