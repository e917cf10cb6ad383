package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quadhq/quad/internal/domain/entities"
	"github.com/quadhq/quad/internal/domain/repositories"
	"github.com/quadhq/quad/internal/pkg/emailutil"
	"github.com/quadhq/quad/internal/pkg/metrics"
)

// SeatLimitReason is carried on upgrade redirects so the caller can build
// the "/upgrade?reason=user-limit" URL
const SeatLimitReason = "user-limit"

// AdmissionService decides whether an externally authenticated identity is
// admitted into the platform. It reconciles the identity with the account
// directory, matches new users to a tenant by email domain, and applies the
// free-tier seat ceiling.
type AdmissionService struct {
	accountRepo repositories.AccountRepository
	tenantRepo  repositories.TenantRepository
	seatLimit   int
	log         *slog.Logger
}

// NewAdmissionService creates a new admission service. seatLimit is the
// free-tier active-account ceiling applied to startup tenants.
func NewAdmissionService(accountRepo repositories.AccountRepository, tenantRepo repositories.TenantRepository, seatLimit int) *AdmissionService {
	return &AdmissionService{
		accountRepo: accountRepo,
		tenantRepo:  tenantRepo,
		seatLimit:   seatLimit,
		log:         slog.Default().With(slog.String("service", "admission")),
	}
}

// Admit runs the identity reconciliation and tenant admission procedure for
// one sign-in attempt. It performs at most one write: either the identity-link
// update on an existing account or the creation of a new one, and only the
// creation write pairs with an Allow outcome.
//
// A malformed assertion yields Deny with no storage calls and a nil error.
// Storage failures abort the procedure and surface as errors; they are never
// converted into a Deny.
func (s *AdmissionService) Admit(ctx context.Context, assertion entities.IdentityAssertion) (entities.Decision, error) {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordServiceOperation("admission", "admit", time.Since(start), err)
	}()

	// Fail closed on malformed assertions before touching storage. No account
	// may ever be created for an assertion missing an email or provider identity.
	if !emailutil.IsValid(assertion.Email) || assertion.Provider == "" || assertion.ProviderAccountID == "" {
		s.log.Warn("denying malformed identity assertion",
			slog.String("provider", assertion.Provider),
			slog.Bool("has_email", assertion.Email != ""))
		metrics.RecordAdmissionDecision(assertion.Provider, string(entities.OutcomeDeny))
		return entities.DenyDecision(), nil
	}

	var decision entities.Decision
	account, err := s.accountRepo.GetByEmail(ctx, assertion.Email)
	if err == nil {
		decision, err = s.updateExisting(ctx, account, assertion)
		return decision, err
	}
	if !IsAccountNotFound(err) {
		return entities.Decision{}, fmt.Errorf("failed to look up account by email: %w", err)
	}

	// No account yet: match the email domain against a tenant's admin address
	domain := emailutil.DomainSuffix(assertion.Email)

	tenant, err := s.tenantRepo.GetByAdminEmailDomain(ctx, domain)
	if err != nil {
		if IsTenantNotFound(err) {
			s.log.Info("no tenant for email domain, redirecting to signup",
				slog.String("domain", domain),
				slog.String("provider", assertion.Provider))
			metrics.RecordAdmissionDecision(assertion.Provider, string(entities.OutcomeRedirectSignup))
			err = nil
			return entities.SignupDecision(assertion.Email), nil
		}
		return entities.Decision{}, fmt.Errorf("failed to look up tenant by domain: %w", err)
	}

	decision, err = s.admitIntoTenant(ctx, tenant, assertion)
	return decision, err
}

// updateExisting refreshes the stored identity link of an already admitted
// account. Repeated sign-ins with the same assertion converge to the same
// stored identity-link fields.
func (s *AdmissionService) updateExisting(ctx context.Context, account *entities.Account, assertion entities.IdentityAssertion) (entities.Decision, error) {
	now := time.Now()

	var avatarURL *string
	if assertion.AvatarURL != "" {
		avatarURL = &assertion.AvatarURL
	}

	if err := s.accountRepo.UpdateIdentityLink(ctx, account.ID, assertion.Provider, assertion.ProviderAccountID, avatarURL, now); err != nil {
		return entities.Decision{}, fmt.Errorf("failed to update identity link: %w", err)
	}

	account.OAuthProvider = &assertion.Provider
	account.OAuthID = &assertion.ProviderAccountID
	account.AvatarURL = avatarURL
	account.LastLoginAt = &now

	s.log.Debug("updated identity link for existing account",
		slog.String("account_id", account.ID),
		slog.String("provider", assertion.Provider))
	metrics.RecordAdmissionDecision(assertion.Provider, string(entities.OutcomeAllow))

	return entities.AllowDecision(account), nil
}

// admitIntoTenant applies the seat-limit policy and creates the new account.
func (s *AdmissionService) admitIntoTenant(ctx context.Context, tenant *entities.Tenant, assertion entities.IdentityAssertion) (entities.Decision, error) {
	count, err := s.accountRepo.CountActiveInTenant(ctx, tenant.ID)
	if err != nil {
		return entities.Decision{}, fmt.Errorf("failed to count active accounts: %w", err)
	}

	// The seat ceiling applies only to startup tenants; larger plans are exempt.
	if count >= s.seatLimit && tenant.SeatLimited() {
		s.log.Info("seat ceiling reached, redirecting to upgrade",
			slog.String("tenant_id", tenant.ID),
			slog.Int("active_accounts", count),
			slog.Int("seat_limit", s.seatLimit))
		metrics.SeatLimitRejections.Inc()
		metrics.RecordAdmissionDecision(assertion.Provider, string(entities.OutcomeRedirectUpgrade))
		return entities.UpgradeDecision(SeatLimitReason), nil
	}

	now := time.Now()
	account := &entities.Account{
		TenantID:      tenant.ID,
		Email:         assertion.Email,
		OAuthProvider: &assertion.Provider,
		OAuthID:       &assertion.ProviderAccountID,
		Role:          entities.DefaultRole,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastLoginAt:   &now,
	}
	if assertion.DisplayName != "" {
		account.FullName = &assertion.DisplayName
	}
	if assertion.AvatarURL != "" {
		account.AvatarURL = &assertion.AvatarURL
	}

	// Creation re-checks the ceiling under a tenant row lock so two concurrent
	// admissions into a near-full startup tenant cannot both slip under it.
	ceiling := 0
	if tenant.SeatLimited() {
		ceiling = s.seatLimit
	}

	if err := s.accountRepo.CreateInTenant(ctx, account, ceiling); err != nil {
		if IsSeatLimitReached(err) {
			// Lost the race: another admission filled the last seat.
			metrics.SeatLimitRejections.Inc()
			metrics.RecordAdmissionDecision(assertion.Provider, string(entities.OutcomeRedirectUpgrade))
			return entities.UpgradeDecision(SeatLimitReason), nil
		}
		return entities.Decision{}, fmt.Errorf("failed to create account: %w", err)
	}

	s.log.Info("admitted new account into tenant",
		slog.String("account_id", account.ID),
		slog.String("tenant_id", tenant.ID),
		slog.String("provider", assertion.Provider),
		slog.String("role", string(account.Role)))
	metrics.RecordAdmissionDecision(assertion.Provider, string(entities.OutcomeAllow))

	return entities.AllowDecision(account), nil
}
