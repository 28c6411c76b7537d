package apperrors

import (
	"errors"
	"fmt"
)

// Sentinels the API layer maps to status codes.
var (
	// ErrNotFound means no customer (or visit target) has the given id.
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrValidation means a customer or visit failed its required-field rules.
	ErrValidation = errors.New("validation failed")

	// ErrDatabase and ErrStorage mark failures of the postgres and local
	// strategies; both read as "storage unavailable" to clients.
	ErrDatabase = errors.New("database error")
	ErrStorage  = errors.New("storage error")

	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
)

// ValidationError names the offending field of a rejected record.
type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

// AppError carries a machine-readable code next to a human message.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return wrap("DB_ERROR", ErrDatabase, cause, message)
}

func WrapStorageError(cause error, message string) error {
	return wrap("STORAGE_ERROR", ErrStorage, cause, message)
}

func wrap(code string, kind, cause error, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   fmt.Errorf("%w: %w", kind, cause),
	}
}
