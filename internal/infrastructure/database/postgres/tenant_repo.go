package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quadhq/quad/internal/domain/entities"
	"github.com/quadhq/quad/internal/domain/repositories"
	"github.com/quadhq/quad/internal/pkg/idgen"
	"github.com/quadhq/quad/internal/pkg/metrics"
)

// TenantRepository implements the TenantRepository interface for PostgreSQL
type TenantRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewTenantRepository creates a new PostgreSQL tenant repository
func NewTenantRepository(db *sqlx.DB) repositories.TenantRepository {
	return &TenantRepository{
		db:  db,
		log: slog.Default().With(slog.String("repo", "tenant")),
	}
}

// tenantRow represents a tenant as stored in the database
type tenantRow struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	AdminEmail       string    `db:"admin_email"`
	Size             string    `db:"size"`
	AdoptionLevel    string    `db:"adoption_level"`
	EstimationPreset string    `db:"estimation_preset"`
	RefreshInterval  int       `db:"refresh_interval"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// toEntity converts a tenantRow to a domain entity
func (r *tenantRow) toEntity() *entities.Tenant {
	return &entities.Tenant{
		ID:               r.ID,
		Name:             r.Name,
		AdminEmail:       r.AdminEmail,
		Size:             entities.SizeClass(r.Size),
		AdoptionLevel:    r.AdoptionLevel,
		EstimationPreset: r.EstimationPreset,
		RefreshInterval:  r.RefreshInterval,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// tenantRowFromEntity converts a domain entity to a tenantRow
func tenantRowFromEntity(tenant *entities.Tenant) *tenantRow {
	return &tenantRow{
		ID:               tenant.ID,
		Name:             tenant.Name,
		AdminEmail:       tenant.AdminEmail,
		Size:             string(tenant.Size),
		AdoptionLevel:    tenant.AdoptionLevel,
		EstimationPreset: tenant.EstimationPreset,
		RefreshInterval:  tenant.RefreshInterval,
		CreatedAt:        tenant.CreatedAt,
		UpdatedAt:        tenant.UpdatedAt,
	}
}

const tenantColumns = `id, name, admin_email, size, adoption_level, estimation_preset,
       refresh_interval, created_at, updated_at`

// GetByID retrieves a tenant by its ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*entities.Tenant, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("tenant", "get_by_id", time.Since(start), rowCount, err)
	}()

	var row tenantRow
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	err = r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			err = repositories.ErrTenantNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	rowCount = 1
	return row.toEntity(), nil
}

// GetByAdminEmail retrieves a tenant by exact admin email match
func (r *TenantRepository) GetByAdminEmail(ctx context.Context, adminEmail string) (*entities.Tenant, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("tenant", "get_by_admin_email", time.Since(start), rowCount, err)
	}()

	var row tenantRow
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE LOWER(admin_email) = $1`

	err = r.db.GetContext(ctx, &row, query, strings.ToLower(adminEmail))
	if err != nil {
		if err == sql.ErrNoRows {
			err = repositories.ErrTenantNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to get tenant by admin email: %w", err)
	}

	rowCount = 1
	return row.toEntity(), nil
}

// likeEscaper quotes LIKE metacharacters. The domain comes out of an
// asserted email, so it must match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// domainSuffixPattern builds the LIKE pattern matching admin emails that
// end in "@"+domain.
func domainSuffixPattern(domain string) string {
	return "%@" + likeEscaper.Replace(strings.ToLower(domain))
}

// GetByAdminEmailDomain retrieves the tenant whose admin email ends in
// "@"+domain. Ordering by id makes the winner stable when several tenants
// share a domain.
func (r *TenantRepository) GetByAdminEmailDomain(ctx context.Context, domain string) (*entities.Tenant, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("tenant", "get_by_admin_email_domain", time.Since(start), rowCount, err)
	}()

	var row tenantRow
	query := `SELECT ` + tenantColumns + `
		FROM tenants
		WHERE LOWER(admin_email) LIKE $1 ESCAPE '\'
		ORDER BY id ASC
		LIMIT 1`

	err = r.db.GetContext(ctx, &row, query, domainSuffixPattern(domain))
	if err != nil {
		if err == sql.ErrNoRows {
			err = repositories.ErrTenantNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to get tenant by admin email domain: %w", err)
	}

	rowCount = 1
	return row.toEntity(), nil
}

// Create inserts a new tenant
func (r *TenantRepository) Create(ctx context.Context, tenant *entities.Tenant) error {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("tenant", "create", time.Since(start), 1, err)
	}()

	if tenant.ID == "" {
		tenant.ID = idgen.GenerateID()
	}

	r.log.Debug("creating tenant",
		slog.String("id", tenant.ID),
		slog.String("name", tenant.Name),
		slog.String("size", string(tenant.Size)))

	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	row := tenantRowFromEntity(tenant)

	query := `INSERT INTO tenants (
			id, name, admin_email, size, adoption_level, estimation_preset,
			refresh_interval, created_at, updated_at
		) VALUES (
			:id, :name, :admin_email, :size, :adoption_level, :estimation_preset,
			:refresh_interval, :created_at, :updated_at
		)`

	_, err = r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		if isUniqueViolation(err) {
			err = repositories.ErrDuplicateEmail
			return err
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

// ExistsByAdminEmail checks if a tenant is registered under the admin email
func (r *TenantRepository) ExistsByAdminEmail(ctx context.Context, adminEmail string) (bool, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("tenant", "exists_by_admin_email", time.Since(start), rowCount, err)
	}()

	var count int
	query := `SELECT COUNT(*) FROM tenants WHERE LOWER(admin_email) = $1`

	err = r.db.GetContext(ctx, &count, query, strings.ToLower(adminEmail))
	if err != nil {
		return false, fmt.Errorf("failed to check tenant existence: %w", err)
	}

	rowCount = int64(count)
	return count > 0, nil
}
