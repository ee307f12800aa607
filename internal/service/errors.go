package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var (
	// ErrValidation marks payloads rejected by presence or length checks.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks references to items that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks failures of the underlying store.
	ErrStorage = errors.New("storage failure")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storageError maps repository failures onto the service taxonomy.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// IsValidationError reports whether err stems from payload validation.
func IsValidationError(err error) bool {
	if errors.Is(err, ErrValidation) {
		return true
	}
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
