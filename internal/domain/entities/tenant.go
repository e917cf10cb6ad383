package entities

import (
	"time"
)

// Tenant represents a company account that owns a set of user accounts
// and tenant-wide policy settings
type Tenant struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	AdminEmail       string    `json:"admin_email" db:"admin_email"`
	Size             SizeClass `json:"size" db:"size"`
	AdoptionLevel    string    `json:"adoption_level" db:"adoption_level"`
	EstimationPreset string    `json:"estimation_preset" db:"estimation_preset"`
	RefreshInterval  int       `json:"refresh_interval" db:"refresh_interval"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// SizeClass represents a tenant's plan size class
type SizeClass string

const (
	SizeStartup    SizeClass = "startup"
	SizeMedium     SizeClass = "medium"
	SizeEnterprise SizeClass = "enterprise"
)

// ParseSizeClass converts a stored string into a SizeClass, rejecting unknown values
func ParseSizeClass(s string) (SizeClass, bool) {
	switch SizeClass(s) {
	case SizeStartup, SizeMedium, SizeEnterprise:
		return SizeClass(s), true
	}
	return "", false
}

// Intake defaults applied to tenants created through the access-request flow
const (
	DefaultAdoptionLevel    = "hyperspace"
	DefaultEstimationPreset = "platonic"
	DefaultRefreshInterval  = 30 // seconds
)

// SeatLimited returns true if the tenant's size class is subject to the
// free-tier seat ceiling. Only startup tenants are; larger plans are exempt.
func (t *Tenant) SeatLimited() bool {
	return t.Size == SizeStartup
}
