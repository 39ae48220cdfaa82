package apperrors

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Failure taxonomy shared by every service. Services wrap these with
// fmt.Errorf("context: %w", Err...) so callers can match with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrAlreadyExists     = errors.New("already exists")
	ErrDependencyFailure = errors.New("dependency failure")
)

// FromDB translates storage-layer errors into the taxonomy so raw driver
// errors never cross a repository boundary.
func FromDB(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrAlreadyExists
	default:
		return fmt.Errorf("storage: %v: %w", err, ErrDependencyFailure)
	}
}
