package entities

// IdentityAssertion is the claimed identity received after a successful
// external OAuth handshake. It is consumed once per sign-in attempt and
// never persisted directly.
type IdentityAssertion struct {
	Email             string
	Provider          string
	ProviderAccountID string
	DisplayName       string
	AvatarURL         string
}

// Outcome enumerates the terminal results of the admission procedure
type Outcome string

const (
	// OutcomeAllow admits the sign-in; a session may be issued
	OutcomeAllow Outcome = "allow"

	// OutcomeRedirectUpgrade rejects admission because the tenant hit the
	// free-tier seat ceiling; the caller should redirect to the upgrade page
	OutcomeRedirectUpgrade Outcome = "redirect_upgrade"

	// OutcomeRedirectSignup rejects admission because no tenant matched the
	// email domain; the caller should redirect to the signup/request-access page
	OutcomeRedirectSignup Outcome = "redirect_signup"

	// OutcomeDeny fails the sign-in outright (malformed assertion)
	OutcomeDeny Outcome = "deny"
)

// Decision is the tagged result of the admission procedure. Exactly one
// constructor is used per invocation; the payload fields are only meaningful
// for the outcome that set them.
type Decision struct {
	Outcome Outcome

	// Account is the admitted (existing or newly created) account. Set only
	// when Outcome is OutcomeAllow.
	Account *Account

	// Email is the asserted email to carry on the signup redirect. Set only
	// when Outcome is OutcomeRedirectSignup.
	Email string

	// Reason describes why the upgrade redirect was issued. Set only when
	// Outcome is OutcomeRedirectUpgrade.
	Reason string
}

// AllowDecision admits the sign-in for the given account
func AllowDecision(account *Account) Decision {
	return Decision{Outcome: OutcomeAllow, Account: account}
}

// UpgradeDecision rejects admission pending a plan upgrade
func UpgradeDecision(reason string) Decision {
	return Decision{Outcome: OutcomeRedirectUpgrade, Reason: reason}
}

// SignupDecision rejects admission pending a signup/invite flow
func SignupDecision(email string) Decision {
	return Decision{Outcome: OutcomeRedirectSignup, Email: email}
}

// DenyDecision fails the sign-in outright
func DenyDecision() Decision {
	return Decision{Outcome: OutcomeDeny}
}

// Allowed returns true if the decision admits the sign-in
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}
