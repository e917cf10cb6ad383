package repositories

import (
	"context"

	"github.com/quadhq/quad/internal/domain/entities"
)

// IntegrationRepository defines the interface for tenant integration data access
type IntegrationRepository interface {
	// Create stores a new integration row
	Create(ctx context.Context, integration *entities.Integration) error

	// ListEnabled lists a tenant's enabled integrations
	ListEnabled(ctx context.Context, tenantID string) ([]*entities.Integration, error)
}
