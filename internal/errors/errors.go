package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a FunnelMKT error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrCreateInFlight   ErrorCode = "CREATE_IN_FLIGHT"  // 409
	ErrPreviewBlocked   ErrorCode = "PREVIEW_BLOCKED"   // 409
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED" // 422
	ErrInternal         ErrorCode = "INTERNAL"          // 500
	ErrRemoteFailure    ErrorCode = "REMOTE_FAILURE"    // 502
)

// FunnelError represents a structured error with code, status, and details.
type FunnelError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *FunnelError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *FunnelError {
	return &FunnelError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing client, block or preview.
func NewNotFound(kind, identifier string) *FunnelError {
	return &FunnelError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewValidationFailed creates a 422 error carrying per-field messages.
// The message lists the failing fields in a stable order.
func NewValidationFailed(fields map[string]string) *FunnelError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	details := make(map[string]any, len(fields))
	for name, msg := range fields {
		details[name] = msg
	}
	return &FunnelError{
		Code:    ErrValidationFailed,
		Status:  422,
		Message: fmt.Sprintf("validation failed: %s", strings.Join(names, ", ")),
		Details: details,
	}
}

// NewCreateInFlight creates a 409 error when a create is already pending.
func NewCreateInFlight() *FunnelError {
	return &FunnelError{
		Code:    ErrCreateInFlight,
		Status:  409,
		Message: "a client is already being created; wait for it to finish",
	}
}

// NewRemoteFailure creates a 502 error for a failed call to the client registry.
func NewRemoteFailure(err error) *FunnelError {
	msg := "client registry request failed"
	if err != nil {
		msg = fmt.Sprintf("client registry request failed: %v", err)
	}
	return &FunnelError{
		Code:    ErrRemoteFailure,
		Status:  502,
		Message: msg,
	}
}

// NewPreviewBlocked creates a 409 error when the preview could not be opened.
func NewPreviewBlocked(reason string) *FunnelError {
	return &FunnelError{
		Code:    ErrPreviewBlocked,
		Status:  409,
		Message: fmt.Sprintf("preview could not be opened: %s", reason),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *FunnelError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &FunnelError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a FunnelError with the given code.
func Is(err error, code ErrorCode) bool {
	var fErr *FunnelError
	if stderrors.As(err, &fErr) {
		return fErr.Code == code
	}
	return false
}

// FieldErrors returns the per-field messages of a VALIDATION_FAILED error.
func FieldErrors(err error) map[string]string {
	var fErr *FunnelError
	if !stderrors.As(err, &fErr) || fErr.Code != ErrValidationFailed {
		return nil
	}
	out := make(map[string]string, len(fErr.Details))
	for k, v := range fErr.Details {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
