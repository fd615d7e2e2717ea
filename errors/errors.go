// Package errors provides the structured error type shared by marathon's
// connectors, router and HTTP layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// Wrap returns err as an AppError. AppErrors anywhere in the chain are
// returned as-is, anything else becomes an internal error.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// --- Connection errors ---

// ConnectFailed reports that connecting to a backing service did not succeed.
func ConnectFailed(service string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeConnectionFailed,
		Message:    fmt.Sprintf("Unable to connect to %s.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// ServiceUnavailable creates a new AppError for a service that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout creates a new AppError for an operation that ran out of time.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// --- Resource errors ---

func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("A %s with these details already exists.", resource),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"resource": resource},
	}
}

// --- Validation errors ---

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}

// InvalidConfig reports a configuration value that cannot be used.
func InvalidConfig(key, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("Invalid configuration for %s: %s", key, reason),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"key": key},
	}
}

// --- Route binding errors ---

// RouteConflict reports a (method, route) pair claimed by two handlers.
func RouteConflict(method, route, bound, conflicting string) *AppError {
	return &AppError{
		Code: ErrCodeRouteConflict,
		Message: fmt.Sprintf("%s %s is declared by both %q and %q.",
			strings.ToUpper(method), route, bound, conflicting),
		HTTPStatus: http.StatusInternalServerError,
		Details: map[string]any{
			"method":      method,
			"route":       route,
			"bound":       bound,
			"conflicting": conflicting,
		},
	}
}

// UnreachableRoute reports a handler whose route never received a binding.
func UnreachableRoute(route, handler string) *AppError {
	return &AppError{
		Code:       ErrCodeUnreachableRoute,
		Message:    fmt.Sprintf("Handler %q declares route %s but exposes no allowed operation.", handler, route),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"route": route, "handler": handler},
	}
}

// InvalidRoute reports a handler descriptor that cannot be bound.
func InvalidRoute(handler, reason string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidRoute,
		Message:    fmt.Sprintf("Handler %q has an invalid route: %s", handler, reason),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"handler": handler},
	}
}

// --- Internal errors ---

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// DatabaseError creates a new AppError for a database error.
func DatabaseError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDatabaseError, Message: "A database error occurred. Please try again.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
	}
}

// IsCode reports whether err is an AppError carrying code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
