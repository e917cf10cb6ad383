package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quadhq/quad/internal/domain/entities"
	"github.com/quadhq/quad/internal/domain/repositories"
	"github.com/quadhq/quad/internal/pkg/idgen"
	"github.com/quadhq/quad/internal/pkg/metrics"
)

// IntegrationRepository implements the IntegrationRepository interface for PostgreSQL
type IntegrationRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewIntegrationRepository creates a new PostgreSQL integration repository
func NewIntegrationRepository(db *sqlx.DB) repositories.IntegrationRepository {
	return &IntegrationRepository{
		db:  db,
		log: slog.Default().With(slog.String("repo", "integration")),
	}
}

// Create stores a new integration row
func (r *IntegrationRepository) Create(ctx context.Context, integration *entities.Integration) error {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("integration", "create", time.Since(start), 1, err)
	}()

	if integration.ID == "" {
		integration.ID = idgen.GenerateID()
	}

	now := time.Now()
	integration.CreatedAt = now
	integration.UpdatedAt = now

	r.log.Debug("creating integration",
		slog.String("id", integration.ID),
		slog.String("tenant_id", integration.TenantID),
		slog.String("integration_id", integration.IntegrationID))

	query := `INSERT INTO tenant_integrations (
			id, tenant_id, integration_id, enabled, config, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :integration_id, :enabled, :config, :created_at, :updated_at
		)`

	_, err = r.db.NamedExecContext(ctx, query, integration)
	if err != nil {
		return fmt.Errorf("failed to create integration: %w", err)
	}

	return nil
}

// ListEnabled lists a tenant's enabled integrations
func (r *IntegrationRepository) ListEnabled(ctx context.Context, tenantID string) ([]*entities.Integration, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("integration", "list_enabled", time.Since(start), rowCount, err)
	}()

	var rows []*entities.Integration
	query := `
		SELECT id, tenant_id, integration_id, enabled, config, created_at, updated_at
		FROM tenant_integrations
		WHERE tenant_id = $1 AND enabled = true
		ORDER BY integration_id ASC`

	err = r.db.SelectContext(ctx, &rows, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	rowCount = int64(len(rows))
	return rows, nil
}
