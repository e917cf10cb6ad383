package config

import (
	"fmt"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	Session     SessionConfig  `yaml:"session"`
	Logging     LoggingConfig  `yaml:"logging"`
	Environment string         `yaml:"environment"` // local, dev, prod
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"` // public base URL used to build OAuth redirect URIs
	NodeID  int64  `yaml:"node_id"`  // snowflake node ID, unique per running instance
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"` // disable, require, verify-ca, verify-full
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWT       JWTConfig        `yaml:"jwt"`
	Providers []ProviderConfig `yaml:"providers"`
	// SeatLimit is the free-tier active-account ceiling for startup tenants
	SeatLimit int `yaml:"seat_limit"`
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	SigningKey string        `yaml:"signing_key"` // Secret key for signing JWTs
	Lifetime   time.Duration `yaml:"lifetime"`    // Default 24 hours
}

// SessionConfig holds cookie session configuration
type SessionConfig struct {
	Secret string `yaml:"secret"` // base64-encoded cookie signing key
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// ProviderConfig holds OAuth provider configuration
type ProviderConfig struct {
	Name         string   `yaml:"name"`                    // "google", "github", "okta", "azure-ad", "auth0"
	ClientID     string   `yaml:"client_id"`               // OAuth client ID (required)
	ClientSecret string   `yaml:"client_secret,omitempty"` // OAuth client secret
	Issuer       string   `yaml:"issuer,omitempty"`        // Issuer URL (okta, auth0, azure-ad)
	AuthURL      string   `yaml:"auth_url,omitempty"`      // Override authorization endpoint
	TokenURL     string   `yaml:"token_url,omitempty"`     // Override token endpoint
	UserInfoURL  string   `yaml:"userinfo_url,omitempty"`  // Override userinfo endpoint
	Scopes       []string `yaml:"scopes,omitempty"`        // OAuth scopes
}

// ConnectionString returns the PostgreSQL connection string
func (p *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// RedirectURI returns the OAuth callback URI for this deployment
func (s *ServerConfig) RedirectURI() string {
	return s.BaseURL + "/auth/callback"
}
