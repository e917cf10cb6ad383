package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"golang.org/x/oauth2"

	"github.com/quadhq/quad/internal/config"
	"github.com/quadhq/quad/internal/domain/entities"
)

// wellKnownEndpoints maps provider names to their OAuth endpoints so config
// only needs client credentials for the common providers. Okta, Auth0 and
// other issuer-based providers must set the URLs in config.
var wellKnownEndpoints = map[string]struct {
	authURL     string
	tokenURL    string
	userInfoURL string
	scopes      []string
}{
	"google": {
		authURL:     "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL:    "https://oauth2.googleapis.com/token",
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		scopes:      []string{"openid", "email", "profile"},
	},
	"github": {
		authURL:     "https://github.com/login/oauth/authorize",
		tokenURL:    "https://github.com/login/oauth/access_token",
		userInfoURL: "https://api.github.com/user",
		scopes:      []string{"read:user", "user:email"},
	},
	"azure-ad": {
		authURL:     "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		tokenURL:    "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		userInfoURL: "https://graph.microsoft.com/oidc/userinfo",
		scopes:      []string{"openid", "email", "profile"},
	},
}

// Provider wraps one upstream OAuth identity provider
type Provider struct {
	name        string
	oauth       *oauth2.Config
	userInfoURL string
}

// NewProvider builds a provider from configuration, filling in well-known
// endpoints when the config leaves them blank
func NewProvider(cfg config.ProviderConfig, redirectURL string) (*Provider, error) {
	authURL := cfg.AuthURL
	tokenURL := cfg.TokenURL
	userInfoURL := cfg.UserInfoURL
	scopes := cfg.Scopes

	if known, ok := wellKnownEndpoints[cfg.Name]; ok {
		if authURL == "" {
			authURL = known.authURL
		}
		if tokenURL == "" {
			tokenURL = known.tokenURL
		}
		if userInfoURL == "" {
			userInfoURL = known.userInfoURL
		}
		if len(scopes) == 0 {
			scopes = known.scopes
		}
	}

	// Issuer-based providers (okta, auth0) publish endpoints under the issuer
	if authURL == "" && cfg.Issuer != "" {
		authURL = cfg.Issuer + "/oauth2/v1/authorize"
		tokenURL = cfg.Issuer + "/oauth2/v1/token"
		userInfoURL = cfg.Issuer + "/oauth2/v1/userinfo"
	}

	if authURL == "" || tokenURL == "" {
		return nil, fmt.Errorf("provider %s: auth_url and token_url are required", cfg.Name)
	}
	if userInfoURL == "" {
		return nil, fmt.Errorf("provider %s: userinfo_url is required", cfg.Name)
	}

	return &Provider{
		name: cfg.Name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		userInfoURL: userInfoURL,
	}, nil
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL builds the authorization URL for the given CSRF state
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange swaps an authorization code for a token
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// userInfo is the subset of userinfo claims the admission flow needs.
// Field fallbacks cover the variation between providers.
type userInfo struct {
	Sub       string      `json:"sub"`
	ID        json.Number `json:"id"` // github uses a numeric id instead of sub
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Login     string      `json:"login"`
	Picture   string      `json:"picture"`
	AvatarURL string      `json:"avatar_url"`
}

// FetchIdentity fetches the authenticated user's profile from the userinfo
// endpoint and maps it to an identity assertion
func (p *Provider) FetchIdentity(ctx context.Context, token *oauth2.Token) (*entities.IdentityAssertion, error) {
	client := p.oauth.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	subject := info.Sub
	if subject == "" {
		subject = info.ID.String()
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}

	avatar := info.Picture
	if avatar == "" {
		avatar = info.AvatarURL
	}

	return &entities.IdentityAssertion{
		Email:             info.Email,
		Provider:          p.name,
		ProviderAccountID: subject,
		DisplayName:       name,
		AvatarURL:         avatar,
	}, nil
}

// Registry holds the configured identity providers
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry builds a registry from the configured providers. The redirect
// URL is shared, the callback handler disambiguates by state.
func NewRegistry(providers []config.ProviderConfig, redirectURL string) (*Registry, error) {
	r := &Registry{providers: make(map[string]*Provider)}
	for _, cfg := range providers {
		provider, err := NewProvider(cfg, redirectURL)
		if err != nil {
			return nil, err
		}
		r.providers[provider.Name()] = provider
	}
	return r, nil
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (*Provider, error) {
	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return provider, nil
}

// List returns the registered provider names in stable order
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
