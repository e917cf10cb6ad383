package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/quadhq/quad/internal/domain/entities"
)

// mockIntegrationRepo is an in-memory IntegrationRepository
type mockIntegrationRepo struct {
	integrations []*entities.Integration
}

func (m *mockIntegrationRepo) Create(ctx context.Context, integration *entities.Integration) error {
	m.integrations = append(m.integrations, integration)
	return nil
}

func (m *mockIntegrationRepo) ListEnabled(ctx context.Context, tenantID string) ([]*entities.Integration, error) {
	var enabled []*entities.Integration
	for _, i := range m.integrations {
		if i.TenantID == tenantID && i.Enabled {
			enabled = append(enabled, i)
		}
	}
	return enabled, nil
}

func validRequest() AccessRequest {
	return AccessRequest{
		CompanyName: "Acme",
		AdminEmail:  "admin@acme.example",
		CompanySize: entities.SizeStartup,
		SSOProvider: "okta",
		Message:     "We want in",
	}
}

func TestSubmitAccessRequest(t *testing.T) {
	tenants := &mockTenantRepo{}
	integrations := &mockIntegrationRepo{}
	svc := NewIntakeService(tenants, integrations)

	tenant, err := svc.SubmitAccessRequest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if tenant.AdoptionLevel != entities.DefaultAdoptionLevel {
		t.Errorf("expected adoption level %q, got %q", entities.DefaultAdoptionLevel, tenant.AdoptionLevel)
	}
	if tenant.EstimationPreset != entities.DefaultEstimationPreset {
		t.Errorf("expected estimation preset %q, got %q", entities.DefaultEstimationPreset, tenant.EstimationPreset)
	}
	if tenant.RefreshInterval != entities.DefaultRefreshInterval {
		t.Errorf("expected refresh interval %d, got %d", entities.DefaultRefreshInterval, tenant.RefreshInterval)
	}

	if len(integrations.integrations) != 1 {
		t.Fatalf("expected one integration row, got %d", len(integrations.integrations))
	}
	row := integrations.integrations[0]
	if row.IntegrationID != entities.AccessRequestIntegrationID {
		t.Errorf("expected integration id %q, got %q", entities.AccessRequestIntegrationID, row.IntegrationID)
	}
	if row.Enabled {
		t.Error("access request row must start disabled")
	}

	var cfg entities.AccessRequestConfig
	if err := json.Unmarshal([]byte(row.Config), &cfg); err != nil {
		t.Fatalf("config is not valid JSON: %v", err)
	}
	if cfg.SSOProvider != "okta" || cfg.Status != "pending" {
		t.Errorf("unexpected config payload: %+v", cfg)
	}
}

func TestSubmitAccessRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AccessRequest)
		wantErr error
	}{
		{
			name:    "missing company name",
			mutate:  func(r *AccessRequest) { r.CompanyName = "" },
			wantErr: ErrIntakeMissingFields,
		},
		{
			name:    "missing sso provider",
			mutate:  func(r *AccessRequest) { r.SSOProvider = "" },
			wantErr: ErrIntakeMissingFields,
		},
		{
			name:    "invalid email",
			mutate:  func(r *AccessRequest) { r.AdminEmail = "nope" },
			wantErr: ErrIntakeInvalidEmail,
		},
		{
			name:    "unknown size class",
			mutate:  func(r *AccessRequest) { r.CompanySize = "galactic" },
			wantErr: ErrIntakeInvalidSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenants := &mockTenantRepo{}
			integrations := &mockIntegrationRepo{}
			svc := NewIntakeService(tenants, integrations)

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.SubmitAccessRequest(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if len(tenants.tenants) != 0 {
				t.Error("no tenant should be created on validation failure")
			}
		})
	}
}

func TestSubmitAccessRequest_Duplicate(t *testing.T) {
	tenants := &mockTenantRepo{tenants: []*entities.Tenant{
		{ID: "tenant-1", AdminEmail: "admin@acme.example"},
	}}
	integrations := &mockIntegrationRepo{}
	svc := NewIntakeService(tenants, integrations)

	_, err := svc.SubmitAccessRequest(context.Background(), validRequest())
	if !errors.Is(err, ErrIntakeDuplicate) {
		t.Errorf("expected ErrIntakeDuplicate, got %v", err)
	}
}
