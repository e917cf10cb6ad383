package repositories

import (
	"context"
	"time"

	"github.com/quadhq/quad/internal/domain/entities"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id string) (*entities.Account, error)

	// GetByEmail retrieves an account by exact email match
	GetByEmail(ctx context.Context, email string) (*entities.Account, error)

	// Create inserts a new account with no seat-limit enforcement
	Create(ctx context.Context, account *entities.Account) error

	// CreateInTenant inserts a new account for a tenant. If seatCeiling > 0
	// the insert runs in a transaction that locks the tenant row, re-counts
	// active accounts, and returns ErrSeatLimitReached if the ceiling has
	// been hit. A seatCeiling of 0 disables enforcement (exempt size classes).
	CreateInTenant(ctx context.Context, account *entities.Account, seatCeiling int) error

	// UpdateIdentityLink updates an account's linked OAuth identity fields
	// and last-login timestamp. Repeated calls with the same values converge
	// to the same stored state.
	UpdateIdentityLink(ctx context.Context, accountID, provider, providerAccountID string, avatarURL *string, loginTime time.Time) error

	// UpdateLastLogin updates the account's last login timestamp
	UpdateLastLogin(ctx context.Context, accountID string, loginTime time.Time) error

	// CountActiveInTenant counts active accounts belonging to a tenant
	CountActiveInTenant(ctx context.Context, tenantID string) (int, error)

	// ExistsByEmail checks if an account exists by email
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
