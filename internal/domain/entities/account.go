package entities

import (
	"time"
)

// Account represents a user account bound to a tenant
type Account struct {
	ID            string     `json:"id" db:"id"`
	TenantID      string     `json:"tenant_id" db:"tenant_id"`
	Email         string     `json:"email" db:"email"`
	FullName      *string    `json:"full_name,omitempty" db:"full_name"`
	AvatarURL     *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	OAuthProvider *string    `json:"oauth_provider,omitempty" db:"oauth_provider"`
	OAuthID       *string    `json:"oauth_id,omitempty" db:"oauth_id"`
	Role          Role       `json:"role" db:"role"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// Role represents an account's operational role within its tenant
type Role string

const (
	RoleAdmin             Role = "QUAD_ADMIN"
	RoleProjectManager    Role = "PROJECT_MANAGER"
	RoleDeveloper         Role = "DEVELOPER"
	RoleQA                Role = "QA"
	RoleInfrastructure    Role = "INFRASTRUCTURE"
	RoleSolutionArchitect Role = "SOLUTION_ARCHITECT"
)

// DefaultRole is the role assigned to accounts admitted via domain match.
// It is the lowest-privilege operational role.
const DefaultRole = RoleDeveloper

// ValidRoles lists every recognized role
var ValidRoles = []Role{
	RoleAdmin,
	RoleProjectManager,
	RoleDeveloper,
	RoleQA,
	RoleInfrastructure,
	RoleSolutionArchitect,
}

// ParseRole converts a stored string into a Role, rejecting unknown values
func ParseRole(s string) (Role, bool) {
	for _, r := range ValidRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// IsAdmin returns true if the account holds the tenant admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Active returns true if the account is active
func (a *Account) Active() bool {
	return a.IsActive
}

// HasLinkedIdentity returns true if the account has an OAuth identity attached
func (a *Account) HasLinkedIdentity() bool {
	return a.OAuthProvider != nil && a.OAuthID != nil
}
