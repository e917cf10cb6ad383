package repositories

import (
	"context"

	"github.com/quadhq/quad/internal/domain/entities"
)

// TenantRepository defines the interface for tenant data access
type TenantRepository interface {
	// GetByID retrieves a tenant by its ID
	GetByID(ctx context.Context, id string) (*entities.Tenant, error)

	// GetByAdminEmail retrieves a tenant by exact admin email match
	GetByAdminEmail(ctx context.Context, adminEmail string) (*entities.Tenant, error)

	// GetByAdminEmailDomain retrieves the tenant whose admin email ends in
	// "@"+domain. If several tenants share the domain suffix the one with the
	// lowest ID wins, so repeated lookups are deterministic.
	GetByAdminEmailDomain(ctx context.Context, domain string) (*entities.Tenant, error)

	// Create inserts a new tenant
	Create(ctx context.Context, tenant *entities.Tenant) error

	// ExistsByAdminEmail checks if a tenant is registered under the admin email
	ExistsByAdminEmail(ctx context.Context, adminEmail string) (bool, error)
}
