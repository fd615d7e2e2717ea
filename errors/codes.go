package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/availability errors (retryable)
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed marks a backing-service connect that did not succeed.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout          ErrorCode = "TIMEOUT"
)

// Resource errors
const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Validation errors
const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField  ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Route binding errors, raised while the router builds its table at startup.
const (
	// ErrCodeRouteConflict means two handlers claim the same (method, route) pair.
	ErrCodeRouteConflict ErrorCode = "ROUTE_CONFLICT"
	// ErrCodeUnreachableRoute means a handler declares a route but none of its
	// operations is in the allowed method set.
	ErrCodeUnreachableRoute ErrorCode = "UNREACHABLE_ROUTE"
	ErrCodeInvalidRoute     ErrorCode = "INVALID_ROUTE"
)

// Internal errors
const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeDatabaseError:      true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// IsBindCode reports whether code belongs to the route binding family.
func IsBindCode(code ErrorCode) bool {
	switch code {
	case ErrCodeRouteConflict, ErrCodeUnreachableRoute, ErrCodeInvalidRoute:
		return true
	}
	return false
}
