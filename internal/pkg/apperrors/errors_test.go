package apperrors

import (
	"errors"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "With Code",
			appError: &AppError{
				Code:    "TEST_CODE",
				Message: "This is a test error",
			},
			expected: "[TEST_CODE] This is a test error",
		},
		{
			name: "Without Code",
			appError: &AppError{
				Message: "This is a test error without code",
			},
			expected: "This is a test error without code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.appError.Error()
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("phone", "phone is required")

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected error to wrap ErrValidation, got %v", err)
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected a *ValidationError in chain, got %T", err)
	}
	if ve.Field != "phone" {
		t.Errorf("expected field %q, got %q", "phone", ve.Field)
	}
}

func TestWrapErrors(t *testing.T) {
	cause := errors.New("disk full")

	dbErr := WrapDatabaseError(cause, "failed to insert customer")
	if !errors.Is(dbErr, ErrDatabase) || !errors.Is(dbErr, cause) {
		t.Errorf("database error chain broken: %v", dbErr)
	}
	if dbErr.Error() != "[DB_ERROR] failed to insert customer" {
		t.Errorf("unexpected message %q", dbErr.Error())
	}

	stErr := WrapStorageError(cause, "failed to write slot")
	if !errors.Is(stErr, ErrStorage) || !errors.Is(stErr, cause) {
		t.Errorf("storage error chain broken: %v", stErr)
	}
}
