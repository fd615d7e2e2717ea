package database

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/marathon/errors"
)

// PostgreSQL SQLSTATE codes inspected when gorm has not translated the error.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// IsConnectionError checks if a database error is a connection error.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"connection closed",
		"driver: bad connection",
		"sql: database is closed",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsNotFound checks if the error is a gorm record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports a unique constraint violation, such as a second
// template with the same app, name and locale.
func IsDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return pgCode(err) == pgUniqueViolation
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// FromDatabase converts a database error to an AppError.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}

	switch {
	case IsNotFound(err):
		return apperrors.NotFound(resource, "")
	case IsDuplicate(err):
		return apperrors.AlreadyExists(resource).WithCause(err)
	case errors.Is(err, gorm.ErrForeignKeyViolated) || pgCode(err) == pgForeignKeyViolation:
		return apperrors.Validation("The referenced record does not exist.").
			WithDetail("resource", resource).WithCause(err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated) || pgCode(err) == pgCheckViolation:
		return apperrors.Validation("The record violates a database constraint.").
			WithDetail("resource", resource).WithCause(err)
	case IsConnectionError(err):
		return apperrors.New(apperrors.ErrCodeDatabaseError,
			"Database is temporarily unavailable. Please try again.",
			http.StatusServiceUnavailable).WithCause(err)
	}

	return apperrors.DatabaseError(err)
}
