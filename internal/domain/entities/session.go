package entities

import (
	"time"
)

// Session represents a server-side login session backing a JWT
type Session struct {
	ID             string     `json:"id" db:"id"`
	AccountID      string     `json:"account_id" db:"account_id"`
	Token          string     `json:"-" db:"token"` // never serialize to JSON
	ExpiresAt      time.Time  `json:"expires_at" db:"expires_at"`
	IPAddress      *string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent      *string    `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty" db:"last_activity_at"`
}

// IsExpired returns true if the session has passed its expiry time
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
