package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quadhq/quad/internal/domain/entities"
	"github.com/quadhq/quad/internal/domain/repositories"
)

// mockAccountRepo is an in-memory AccountRepository that counts invocations
type mockAccountRepo struct {
	accounts map[string]*entities.Account // keyed by email

	calls       int
	createCalls int

	getByEmailErr error
	createErr     error
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[string]*entities.Account)}
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id string) (*entities.Account, error) {
	m.calls++
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repositories.ErrAccountNotFound
}

func (m *mockAccountRepo) GetByEmail(ctx context.Context, email string) (*entities.Account, error) {
	m.calls++
	if m.getByEmailErr != nil {
		return nil, m.getByEmailErr
	}
	if a, ok := m.accounts[email]; ok {
		return a, nil
	}
	return nil, repositories.ErrAccountNotFound
}

func (m *mockAccountRepo) Create(ctx context.Context, account *entities.Account) error {
	return m.CreateInTenant(ctx, account, 0)
}

func (m *mockAccountRepo) CreateInTenant(ctx context.Context, account *entities.Account, seatCeiling int) error {
	m.calls++
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.accounts[account.Email]; ok {
		return repositories.ErrDuplicateEmail
	}
	if account.ID == "" {
		account.ID = "acct-new"
	}
	m.accounts[account.Email] = account
	return nil
}

func (m *mockAccountRepo) UpdateIdentityLink(ctx context.Context, accountID, provider, providerAccountID string, avatarURL *string, loginTime time.Time) error {
	m.calls++
	for _, a := range m.accounts {
		if a.ID == accountID {
			a.OAuthProvider = &provider
			a.OAuthID = &providerAccountID
			a.AvatarURL = avatarURL
			a.LastLoginAt = &loginTime
			return nil
		}
	}
	return repositories.ErrAccountNotFound
}

func (m *mockAccountRepo) UpdateLastLogin(ctx context.Context, accountID string, loginTime time.Time) error {
	m.calls++
	return nil
}

func (m *mockAccountRepo) CountActiveInTenant(ctx context.Context, tenantID string) (int, error) {
	m.calls++
	count := 0
	for _, a := range m.accounts {
		if a.TenantID == tenantID && a.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *mockAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m.calls++
	_, ok := m.accounts[email]
	return ok, nil
}

// mockTenantRepo is an in-memory TenantRepository that counts invocations
type mockTenantRepo struct {
	tenants []*entities.Tenant

	calls       int
	lastDomain  string
	byDomainErr error
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id string) (*entities.Tenant, error) {
	m.calls++
	for _, t := range m.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, repositories.ErrTenantNotFound
}

func (m *mockTenantRepo) GetByAdminEmail(ctx context.Context, adminEmail string) (*entities.Tenant, error) {
	m.calls++
	for _, t := range m.tenants {
		if t.AdminEmail == adminEmail {
			return t, nil
		}
	}
	return nil, repositories.ErrTenantNotFound
}

func (m *mockTenantRepo) GetByAdminEmailDomain(ctx context.Context, domain string) (*entities.Tenant, error) {
	m.calls++
	m.lastDomain = domain
	if m.byDomainErr != nil {
		return nil, m.byDomainErr
	}
	// lowest ID wins, mirroring the repository's deterministic ordering
	var match *entities.Tenant
	suffix := "@" + domain
	for _, t := range m.tenants {
		if len(t.AdminEmail) >= len(suffix) && t.AdminEmail[len(t.AdminEmail)-len(suffix):] == suffix {
			if match == nil || t.ID < match.ID {
				match = t
			}
		}
	}
	if match == nil {
		return nil, repositories.ErrTenantNotFound
	}
	return match, nil
}

func (m *mockTenantRepo) Create(ctx context.Context, tenant *entities.Tenant) error {
	m.calls++
	m.tenants = append(m.tenants, tenant)
	return nil
}

func (m *mockTenantRepo) ExistsByAdminEmail(ctx context.Context, adminEmail string) (bool, error) {
	m.calls++
	for _, t := range m.tenants {
		if t.AdminEmail == adminEmail {
			return true, nil
		}
	}
	return false, nil
}

func validAssertion() entities.IdentityAssertion {
	return entities.IdentityAssertion{
		Email:             "dev@acme.example",
		Provider:          "google",
		ProviderAccountID: "sub-123",
		DisplayName:       "Dev Eloper",
		AvatarURL:         "https://avatars.example/dev.png",
	}
}

func startupTenant() *entities.Tenant {
	return &entities.Tenant{
		ID:         "tenant-1",
		Name:       "Acme",
		AdminEmail: "admin@acme.example",
		Size:       entities.SizeStartup,
	}
}

func seedActiveAccounts(repo *mockAccountRepo, tenantID string, n int) {
	for i := 0; i < n; i++ {
		email := string(rune('a'+i)) + "@acme.example"
		repo.accounts[email] = &entities.Account{
			ID:       "acct-" + string(rune('a'+i)),
			TenantID: tenantID,
			Email:    email,
			IsActive: true,
		}
	}
}

func TestAdmit_MalformedAssertion(t *testing.T) {
	tests := []struct {
		name      string
		assertion entities.IdentityAssertion
	}{
		{
			name: "empty email",
			assertion: entities.IdentityAssertion{
				Provider:          "google",
				ProviderAccountID: "sub-123",
			},
		},
		{
			name: "invalid email",
			assertion: entities.IdentityAssertion{
				Email:             "not-an-email",
				Provider:          "google",
				ProviderAccountID: "sub-123",
			},
		},
		{
			name: "missing provider",
			assertion: entities.IdentityAssertion{
				Email:             "dev@acme.example",
				ProviderAccountID: "sub-123",
			},
		},
		{
			name: "missing provider account id",
			assertion: entities.IdentityAssertion{
				Email:    "dev@acme.example",
				Provider: "google",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := newMockAccountRepo()
			tenants := &mockTenantRepo{}
			svc := NewAdmissionService(accounts, tenants, 5)

			decision, err := svc.Admit(context.Background(), tt.assertion)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if decision.Outcome != entities.OutcomeDeny {
				t.Errorf("expected Deny, got %s", decision.Outcome)
			}
			if accounts.calls != 0 || tenants.calls != 0 {
				t.Errorf("expected zero storage calls, got accounts=%d tenants=%d", accounts.calls, tenants.calls)
			}
		})
	}
}

func TestAdmit_ExistingAccountUpdatesIdentityLink(t *testing.T) {
	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{tenants: []*entities.Tenant{startupTenant()}}

	oldProvider := "github"
	oldID := "gh-999"
	accounts.accounts["dev@acme.example"] = &entities.Account{
		ID:            "acct-1",
		TenantID:      "tenant-1",
		Email:         "dev@acme.example",
		OAuthProvider: &oldProvider,
		OAuthID:       &oldID,
		IsActive:      true,
	}

	svc := NewAdmissionService(accounts, tenants, 5)
	decision, err := svc.Admit(context.Background(), validAssertion())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.Outcome != entities.OutcomeAllow {
		t.Fatalf("expected Allow, got %s", decision.Outcome)
	}
	if decision.Account == nil || decision.Account.ID != "acct-1" {
		t.Fatal("expected the existing account on the decision")
	}

	stored := accounts.accounts["dev@acme.example"]
	if stored.OAuthProvider == nil || *stored.OAuthProvider != "google" {
		t.Errorf("expected provider updated to google, got %v", stored.OAuthProvider)
	}
	if stored.OAuthID == nil || *stored.OAuthID != "sub-123" {
		t.Errorf("expected provider id updated to sub-123, got %v", stored.OAuthID)
	}
	if len(accounts.accounts) != 1 {
		t.Errorf("expected exactly one account, got %d", len(accounts.accounts))
	}
	if accounts.createCalls != 0 {
		t.Errorf("expected no create call, got %d", accounts.createCalls)
	}
}

func TestAdmit_Idempotent(t *testing.T) {
	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{tenants: []*entities.Tenant{startupTenant()}}
	svc := NewAdmissionService(accounts, tenants, 5)

	// First sign-in admits the account, second one updates it in place
	for i := 0; i < 2; i++ {
		decision, err := svc.Admit(context.Background(), validAssertion())
		if err != nil {
			t.Fatalf("sign-in %d: expected no error, got %v", i+1, err)
		}
		if decision.Outcome != entities.OutcomeAllow {
			t.Fatalf("sign-in %d: expected Allow, got %s", i+1, decision.Outcome)
		}
	}

	if len(accounts.accounts) != 1 {
		t.Fatalf("expected one account after repeated sign-ins, got %d", len(accounts.accounts))
	}
	stored := accounts.accounts["dev@acme.example"]
	if *stored.OAuthProvider != "google" || *stored.OAuthID != "sub-123" {
		t.Errorf("identity-link fields did not converge: %v %v", *stored.OAuthProvider, *stored.OAuthID)
	}
}

func TestAdmit_NoTenantMatch(t *testing.T) {
	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{} // no tenants at all
	svc := NewAdmissionService(accounts, tenants, 5)

	assertion := validAssertion()
	assertion.Email = "someone@foo.example"

	decision, err := svc.Admit(context.Background(), assertion)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.Outcome != entities.OutcomeRedirectSignup {
		t.Fatalf("expected RedirectSignup, got %s", decision.Outcome)
	}
	if decision.Email != "someone@foo.example" {
		t.Errorf("expected redirect to carry the original email, got %q", decision.Email)
	}
	if tenants.lastDomain != "foo.example" {
		t.Errorf("expected domain foo.example, got %q", tenants.lastDomain)
	}
	if accounts.createCalls != 0 {
		t.Errorf("expected no account created, got %d creates", accounts.createCalls)
	}
	if len(tenants.tenants) != 0 {
		t.Errorf("expected no tenant created, got %d", len(tenants.tenants))
	}
}

func TestAdmit_SeatCeilingStartup(t *testing.T) {
	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{tenants: []*entities.Tenant{startupTenant()}}
	seedActiveAccounts(accounts, "tenant-1", 5)
	svc := NewAdmissionService(accounts, tenants, 5)

	assertion := validAssertion()
	assertion.Email = "newdev@acme.example"

	decision, err := svc.Admit(context.Background(), assertion)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.Outcome != entities.OutcomeRedirectUpgrade {
		t.Fatalf("expected RedirectUpgrade, got %s", decision.Outcome)
	}
	if decision.Reason != SeatLimitReason {
		t.Errorf("expected reason %q, got %q", SeatLimitReason, decision.Reason)
	}
	if accounts.createCalls != 0 {
		t.Errorf("expected no account created at the ceiling, got %d creates", accounts.createCalls)
	}
}

func TestAdmit_UnderSeatCeilingCreatesAccount(t *testing.T) {
	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{tenants: []*entities.Tenant{startupTenant()}}
	seedActiveAccounts(accounts, "tenant-1", 4)
	svc := NewAdmissionService(accounts, tenants, 5)

	assertion := validAssertion()
	assertion.Email = "newdev@acme.example"

	decision, err := svc.Admit(context.Background(), assertion)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.Outcome != entities.OutcomeAllow {
		t.Fatalf("expected Allow, got %s", decision.Outcome)
	}
	if accounts.createCalls != 1 {
		t.Fatalf("expected exactly one create, got %d", accounts.createCalls)
	}

	created := accounts.accounts["newdev@acme.example"]
	if created == nil {
		t.Fatal("expected new account stored")
	}
	if created.TenantID != "tenant-1" {
		t.Errorf("expected account bound to tenant-1, got %q", created.TenantID)
	}
	if created.Role != entities.DefaultRole {
		t.Errorf("expected default role %s, got %s", entities.DefaultRole, created.Role)
	}
	if !created.IsActive {
		t.Error("expected new account to be active")
	}

	count, _ := accounts.CountActiveInTenant(context.Background(), "tenant-1")
	if count != 5 {
		t.Errorf("expected 5 active accounts after admission, got %d", count)
	}
}

func TestAdmit_SizeClassExemption(t *testing.T) {
	tenant := startupTenant()
	tenant.Size = entities.SizeEnterprise

	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{tenants: []*entities.Tenant{tenant}}
	seedActiveAccounts(accounts, "tenant-1", 10)
	svc := NewAdmissionService(accounts, tenants, 5)

	assertion := validAssertion()
	assertion.Email = "newdev@acme.example"

	decision, err := svc.Admit(context.Background(), assertion)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.Outcome != entities.OutcomeAllow {
		t.Fatalf("expected Allow for enterprise tenant over the ceiling, got %s", decision.Outcome)
	}
	if accounts.createCalls != 1 {
		t.Errorf("expected exactly one create, got %d", accounts.createCalls)
	}
}

func TestAdmit_DomainTieBreakLowestID(t *testing.T) {
	first := &entities.Tenant{ID: "tenant-1", AdminEmail: "ops@acme.example", Size: entities.SizeMedium}
	second := &entities.Tenant{ID: "tenant-2", AdminEmail: "it@acme.example", Size: entities.SizeMedium}

	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{tenants: []*entities.Tenant{second, first}}
	svc := NewAdmissionService(accounts, tenants, 5)

	decision, err := svc.Admit(context.Background(), validAssertion())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.Outcome != entities.OutcomeAllow {
		t.Fatalf("expected Allow, got %s", decision.Outcome)
	}
	if decision.Account.TenantID != "tenant-1" {
		t.Errorf("expected admission into lowest-id tenant, got %q", decision.Account.TenantID)
	}
}

func TestAdmit_StorageErrorPropagates(t *testing.T) {
	accounts := newMockAccountRepo()
	accounts.getByEmailErr = errors.New("connection refused")
	tenants := &mockTenantRepo{}
	svc := NewAdmissionService(accounts, tenants, 5)

	_, err := svc.Admit(context.Background(), validAssertion())
	if err == nil {
		t.Fatal("expected storage error to propagate")
	}
}

func TestAdmit_TenantLookupErrorPropagates(t *testing.T) {
	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{byDomainErr: errors.New("connection refused")}
	svc := NewAdmissionService(accounts, tenants, 5)

	_, err := svc.Admit(context.Background(), validAssertion())
	if err == nil {
		t.Fatal("expected storage error to propagate")
	}
}

func TestAdmit_LostSeatRaceRedirectsToUpgrade(t *testing.T) {
	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{tenants: []*entities.Tenant{startupTenant()}}
	seedActiveAccounts(accounts, "tenant-1", 4)
	// The transactional re-check reports the ceiling was filled concurrently
	accounts.createErr = repositories.ErrSeatLimitReached
	svc := NewAdmissionService(accounts, tenants, 5)

	assertion := validAssertion()
	assertion.Email = "newdev@acme.example"

	decision, err := svc.Admit(context.Background(), assertion)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.Outcome != entities.OutcomeRedirectUpgrade {
		t.Fatalf("expected RedirectUpgrade after losing the race, got %s", decision.Outcome)
	}
}

func TestAdmit_WildcardDomainDoesNotMatchOtherTenants(t *testing.T) {
	other := &entities.Tenant{ID: "tenant-9", AdminEmail: "admin@other.example", Size: entities.SizeMedium}
	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{tenants: []*entities.Tenant{other}}
	svc := NewAdmissionService(accounts, tenants, 5)

	// LIKE metacharacters in the asserted domain must match literally,
	// not as wildcards spanning unrelated domains.
	assertion := validAssertion()
	assertion.Email = "dev@%.example"

	decision, err := svc.Admit(context.Background(), assertion)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if decision.Outcome != entities.OutcomeRedirectSignup {
		t.Fatalf("expected RedirectSignup, got %s", decision.Outcome)
	}
	if accounts.createCalls != 0 {
		t.Errorf("expected no account created, got %d creates", accounts.createCalls)
	}
}

func TestAdmit_DomainIsLowercased(t *testing.T) {
	accounts := newMockAccountRepo()
	tenants := &mockTenantRepo{tenants: []*entities.Tenant{startupTenant()}}
	svc := NewAdmissionService(accounts, tenants, 5)

	assertion := validAssertion()
	assertion.Email = "dev@ACME.Example"

	if _, err := svc.Admit(context.Background(), assertion); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tenants.lastDomain != "acme.example" {
		t.Errorf("expected lowercased domain, got %q", tenants.lastDomain)
	}
}
