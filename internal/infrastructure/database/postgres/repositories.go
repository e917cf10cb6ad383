package postgres

import (
	"context"

	"github.com/quadhq/quad/internal/domain/repositories"
)

// NewRepositories builds the full repository set backed by one connection
func NewRepositories(conn *Connection) *repositories.Repositories {
	return &repositories.Repositories{
		Accounts:     NewAccountRepository(conn.DB),
		Tenants:      NewTenantRepository(conn.DB),
		Sessions:     NewSessionRepository(conn.DB),
		Integrations: NewIntegrationRepository(conn.DB),
	}
}

// HealthCheck verifies the database connection is alive
func (c *Connection) HealthCheck(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}
