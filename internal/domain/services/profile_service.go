package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quadhq/quad/internal/domain/entities"
	"github.com/quadhq/quad/internal/domain/repositories"
	"github.com/quadhq/quad/internal/pkg/metrics"
)

// Profile is the combined account/tenant view served to the dashboard
type Profile struct {
	Account      *entities.Account
	Tenant       *entities.Tenant
	ActiveSeats  int
	Integrations []*entities.Integration
}

// ProfileService assembles the company profile for an authenticated account
type ProfileService struct {
	accountRepo     repositories.AccountRepository
	tenantRepo      repositories.TenantRepository
	integrationRepo repositories.IntegrationRepository
	log             *slog.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(accountRepo repositories.AccountRepository, tenantRepo repositories.TenantRepository, integrationRepo repositories.IntegrationRepository) *ProfileService {
	return &ProfileService{
		accountRepo:     accountRepo,
		tenantRepo:      tenantRepo,
		integrationRepo: integrationRepo,
		log:             slog.Default().With(slog.String("service", "profile")),
	}
}

// GetByEmail returns the profile for an active account. Inactive or unknown
// accounts surface as repository sentinel errors for the caller to map to 404.
func (s *ProfileService) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordServiceOperation("profile", "get_by_email", time.Since(start), err)
	}()

	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if !account.Active() {
		err = repositories.ErrAccountInactive
		return nil, err
	}

	tenant, err := s.tenantRepo.GetByID(ctx, account.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	activeSeats, err := s.accountRepo.CountActiveInTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count active accounts: %w", err)
	}

	integrations, err := s.integrationRepo.ListEnabled(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	return &Profile{
		Account:      account,
		Tenant:       tenant,
		ActiveSeats:  activeSeats,
		Integrations: integrations,
	}, nil
}
