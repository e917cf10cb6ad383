package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/quadhq/quad/internal/domain/entities"
	"github.com/quadhq/quad/internal/domain/repositories"
	"github.com/quadhq/quad/internal/pkg/emailutil"
	"github.com/quadhq/quad/internal/pkg/metrics"
)

// AccessRequest is the validated payload of an access-request submission
type AccessRequest struct {
	CompanyName string
	AdminEmail  string
	CompanySize entities.SizeClass
	SSOProvider string
	Message     string
}

// Intake validation errors, surfaced to the HTTP layer as 4xx responses
var (
	ErrIntakeMissingFields = fmt.Errorf("missing required fields")
	ErrIntakeInvalidEmail  = fmt.Errorf("invalid email address")
	ErrIntakeInvalidSize   = fmt.Errorf("invalid company size")
	ErrIntakeDuplicate     = fmt.Errorf("an account with this email already exists")
)

// IntakeService handles access-request submissions: it creates a pending
// tenant and records the request metadata for admin review. Tenants created
// here stay outside the sign-in flow until an admin approves the request.
type IntakeService struct {
	tenantRepo      repositories.TenantRepository
	integrationRepo repositories.IntegrationRepository
	log             *slog.Logger
}

// NewIntakeService creates a new intake service
func NewIntakeService(tenantRepo repositories.TenantRepository, integrationRepo repositories.IntegrationRepository) *IntakeService {
	return &IntakeService{
		tenantRepo:      tenantRepo,
		integrationRepo: integrationRepo,
		log:             slog.Default().With(slog.String("service", "intake")),
	}
}

// SubmitAccessRequest validates and stores an access request, returning the
// created tenant
func (s *IntakeService) SubmitAccessRequest(ctx context.Context, req AccessRequest) (*entities.Tenant, error) {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordServiceOperation("intake", "submit_access_request", time.Since(start), err)
	}()

	if req.CompanyName == "" || req.AdminEmail == "" || req.CompanySize == "" || req.SSOProvider == "" {
		err = ErrIntakeMissingFields
		return nil, err
	}
	if !emailutil.IsValid(req.AdminEmail) {
		err = ErrIntakeInvalidEmail
		return nil, err
	}
	if _, ok := entities.ParseSizeClass(string(req.CompanySize)); !ok {
		err = ErrIntakeInvalidSize
		return nil, err
	}

	exists, err := s.tenantRepo.ExistsByAdminEmail(ctx, req.AdminEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing tenant: %w", err)
	}
	if exists {
		err = ErrIntakeDuplicate
		return nil, err
	}

	now := time.Now()
	tenant := &entities.Tenant{
		Name:             req.CompanyName,
		AdminEmail:       req.AdminEmail,
		Size:             req.CompanySize,
		AdoptionLevel:    entities.DefaultAdoptionLevel,
		EstimationPreset: entities.DefaultEstimationPreset,
		RefreshInterval:  entities.DefaultRefreshInterval,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err = s.tenantRepo.Create(ctx, tenant); err != nil {
		if IsDuplicateEmail(err) {
			err = ErrIntakeDuplicate
			return nil, err
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	// The request metadata rides on a disabled integration row until an
	// admin approves it.
	configJSON, err := json.Marshal(entities.AccessRequestConfig{
		SSOProvider: req.SSOProvider,
		Message:     req.Message,
		RequestedAt: now,
		Status:      "pending",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode access request config: %w", err)
	}

	integration := &entities.Integration{
		TenantID:      tenant.ID,
		IntegrationID: entities.AccessRequestIntegrationID,
		Enabled:       false,
		Config:        string(configJSON),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err = s.integrationRepo.Create(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to record access request: %w", err)
	}

	s.log.Info("access request submitted",
		slog.String("tenant_id", tenant.ID),
		slog.String("company_name", req.CompanyName),
		slog.String("sso_provider", req.SSOProvider))

	return tenant, nil
}
