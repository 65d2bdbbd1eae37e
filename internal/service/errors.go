package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/repository"
)

// ErrValidation marks errors caused by bad client input
var ErrValidation = errors.New("validation error")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// checkID rejects identifiers that cannot name a stored row, reporting them
// as not found
func checkID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
	}
	return nil
}
