package kafka

import (
	"net/http"
	"strings"

	apperrors "github.com/kbukum/marathon/errors"
)

// IsConnectionError checks if a Kafka error is a connection-level error.
func IsConnectionError(err error) bool {
	return containsAny(err, []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"broker not available",
		"leader not available",
		"connection closed",
		"dial tcp",
		"network exception",
	})
}

// IsRetryableError determines if a Kafka error is transient.
func IsRetryableError(err error) bool {
	if IsConnectionError(err) {
		return true
	}
	return containsAny(err, []string{
		"temporary",
		"request timed out",
		"not enough replicas",
	})
}

// IsNonRetryableError checks if the error will fail again on retry.
func IsNonRetryableError(err error) bool {
	return containsAny(err, []string{
		"message too large",
		"invalid topic",
		"invalid partition",
		"unknown topic",
		"authorization failed",
		"is closed",
	})
}

func containsAny(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// FromKafka converts a Kafka error to an AppError.
func FromKafka(err error, topic string) *apperrors.AppError {
	if err == nil {
		return nil
	}

	switch {
	case IsNonRetryableError(err):
		return apperrors.New(apperrors.ErrCodeInvalidInput,
			"Unable to publish the message. Please check your input.",
			http.StatusBadRequest).WithDetail("topic", topic).WithCause(err)
	case IsRetryableError(err):
		return apperrors.ServiceUnavailable("message queue").WithDetail("topic", topic).WithCause(err)
	}
	return apperrors.Internal(err)
}
