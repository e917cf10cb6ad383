package services

import (
	"errors"

	"github.com/quadhq/quad/internal/domain/repositories"
)

// IsAccountNotFound checks if the error indicates account not found.
func IsAccountNotFound(err error) bool {
	return errors.Is(err, repositories.ErrAccountNotFound)
}

// IsTenantNotFound checks if the error indicates tenant not found.
func IsTenantNotFound(err error) bool {
	return errors.Is(err, repositories.ErrTenantNotFound)
}

// IsSeatLimitReached checks if the error indicates the seat ceiling was hit
// during a concurrent admission.
func IsSeatLimitReached(err error) bool {
	return errors.Is(err, repositories.ErrSeatLimitReached)
}

// IsDuplicateEmail checks if the error indicates a unique email violation.
func IsDuplicateEmail(err error) bool {
	return errors.Is(err, repositories.ErrDuplicateEmail)
}
