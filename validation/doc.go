// Package validation wraps go-playground/validator for struct tag validation.
// Failures are returned as INVALID_INPUT errors with per-field details.
package validation
