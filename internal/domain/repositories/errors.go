package repositories

import "errors"

// Domain-specific repository errors
var (
	// ErrAccountNotFound is returned when an account cannot be found
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountInactive is returned when an account exists but is inactive
	ErrAccountInactive = errors.New("account is inactive")

	// ErrTenantNotFound is returned when a tenant cannot be found
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrDuplicateEmail is returned when an insert would violate the unique
	// email constraint on accounts or the admin-email uniqueness of tenants
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrSeatLimitReached is returned when a seat-limited account creation
	// loses the race against a concurrent admission and the ceiling is hit
	ErrSeatLimitReached = errors.New("tenant seat limit reached")

	// ErrSessionNotFound is returned when a session cannot be found
	ErrSessionNotFound = errors.New("session not found")
)
