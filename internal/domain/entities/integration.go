package entities

import (
	"time"
)

// Integration represents a tenant-scoped integration record. The access-request
// intake flow also uses a disabled integration row (id "access_request") to hold
// request metadata for admin review.
type Integration struct {
	ID            string    `json:"-" db:"id"`
	TenantID      string    `json:"-" db:"tenant_id"`
	IntegrationID string    `json:"id" db:"integration_id"`
	Enabled       bool      `json:"enabled" db:"enabled"`
	Config        string    `json:"config" db:"config"` // JSON document
	CreatedAt     time.Time `json:"-" db:"created_at"`
	UpdatedAt     time.Time `json:"-" db:"updated_at"`
}

// AccessRequestIntegrationID marks the integration row that stores a pending
// access request's metadata
const AccessRequestIntegrationID = "access_request"

// AccessRequestConfig is the JSON payload stored with a pending access request
type AccessRequestConfig struct {
	SSOProvider string    `json:"ssoProvider"`
	Message     string    `json:"message,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
	Status      string    `json:"status"`
}
